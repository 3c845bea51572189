package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/notification"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/gorilla/mux"
)

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tenants", s.createTenant).Methods(http.MethodPost)
	api.HandleFunc("/tenants/{tenant}/users", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/tenants/{tenant}/locations", s.createLocation).Methods(http.MethodPost)
	api.HandleFunc("/tenants/{tenant}/locations", s.listTenantLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", s.getLocation).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", s.deleteLocation).Methods(http.MethodDelete)
	api.HandleFunc("/locations/{id}/containers", s.createContainer).Methods(http.MethodPost)
	api.HandleFunc("/locations/{id}/pickups", s.recordPickup).Methods(http.MethodPost)
	api.HandleFunc("/sensors/containers/{id}/fill", s.applyFillLevel).Methods(http.MethodPost)
	api.HandleFunc("/sensors/locations/{id}/containers", s.applyFillLevels).Methods(http.MethodPost)
	api.HandleFunc("/fcm/token", s.registerToken).Methods(http.MethodPost)
	api.HandleFunc("/fcm/token", s.unregisterToken).Methods(http.MethodDelete)
	api.HandleFunc("/fcm/heartbeat", s.heartbeat).Methods(http.MethodPost)

	router.HandleFunc("/ws", s.hub.ServeWS)
	return router
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrFillLevelOutOfRange),
		errors.Is(err, common.ErrEmptyBatch):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrTenantNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrLocationNotFound),
		errors.Is(err, common.ErrContainerNotFound),
		errors.Is(err, common.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrConflictRetriesExhausted),
		errors.Is(err, common.ErrTenantUniqueConstraintViolation),
		errors.Is(err, common.ErrLocationUniqueConstraintViolation),
		errors.Is(err, common.ErrContainerUniqueConstraintViolation):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (types.UniqueID, bool) {
	id, err := types.Parse(mux.Vars(r)[key])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id in path"})
		return types.NilUniqueID(), false
	}
	return id, true
}

type createTenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tenant := &model.Tenant{ID: req.ID, Name: req.Name}
	if err := s.coordinator.CreateTenant(r.Context(), tenant); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

type createUserRequest struct {
	Email string `json:"email"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := &model.User{
		ID:       types.NewUniqueID(),
		TenantID: mux.Vars(r)["tenant"],
		Email:    req.Email,
	}
	if err := s.coordinator.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type createLocationRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	location, err := s.coordinator.CreateLocation(r.Context(), &model.CreateLocation{
		TenantID: mux.Vars(r)["tenant"],
		Name:     req.Name,
		Address:  req.Address,
		Lat:      req.Lat,
		Lng:      req.Lng,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (s *Server) listTenantLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.coordinator.GetTenantLocations(r.Context(), mux.Vars(r)["tenant"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"locations": locations})
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	location, err := s.coordinator.GetLocation(r.Context(), locationID)
	if err != nil {
		writeError(w, err)
		return
	}
	containers, err := s.coordinator.GetLocationContainers(r.Context(), locationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location":   location,
		"containers": containers,
	})
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.coordinator.DeleteLocation(r.Context(), locationID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createContainerRequest struct {
	Number    int `json:"number"`
	FillLevel int `json:"fill_level"`
}

func (s *Server) createContainer(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req createContainerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	container, err := s.coordinator.CreateContainer(r.Context(), &model.CreateContainer{
		LocationID: locationID,
		Number:     req.Number,
		FillLevel:  req.FillLevel,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, container)
}

type fillRequest struct {
	FillLevel int `json:"fill_level"`
}

type pushFailure struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

type pushReport struct {
	Attempted int           `json:"attempted"`
	Delivered int           `json:"delivered"`
	Failures  []pushFailure `json:"failures,omitempty"`
}

func newPushReport(report *notification.DeliveryReport) pushReport {
	out := pushReport{Attempted: report.Attempted, Delivered: report.Delivered}
	for _, failure := range report.Failures {
		out.Failures = append(out.Failures, pushFailure{Token: failure.Token, Error: failure.Err.Error()})
	}
	return out
}

type fillResponse struct {
	Container          *model.Container       `json:"container"`
	Location           model.LocationSnapshot `json:"location"`
	LocationBecameFull bool                   `json:"location_became_full"`
	Push               pushReport             `json:"push"`
}

func (s *Server) applyFillLevel(w http.ResponseWriter, r *http.Request) {
	containerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req fillRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := s.coordinator.ApplyFillLevel(r.Context(), containerID, req.FillLevel)
	if err != nil {
		writeError(w, err)
		return
	}
	report := s.dispatcher.Dispatch(r.Context(), outcome)
	writeJSON(w, http.StatusOK, fillResponse{
		Container:          outcome.Container,
		Location:           outcome.Location,
		LocationBecameFull: outcome.LocationBecameFull,
		Push:               newPushReport(report),
	})
}

type batchFillRequest struct {
	Containers []struct {
		ContainerID types.UniqueID `json:"container_id"`
		FillLevel   int            `json:"fill_level"`
	} `json:"containers"`
}

type batchEntryError struct {
	ContainerID types.UniqueID `json:"container_id"`
	Error       string         `json:"error"`
}

type batchFillResponse struct {
	Location           model.LocationSnapshot `json:"location"`
	Updated            []*model.Container     `json:"updated"`
	Errors             []batchEntryError      `json:"errors,omitempty"`
	LocationBecameFull bool                   `json:"location_became_full"`
	Push               pushReport             `json:"push"`
}

func (s *Server) applyFillLevels(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req batchFillRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entries := make([]model.BatchEntry, 0, len(req.Containers))
	for _, c := range req.Containers {
		entries = append(entries, model.BatchEntry{ContainerID: c.ContainerID, FillLevel: c.FillLevel})
	}
	result, err := s.coordinator.ApplyFillLevels(r.Context(), locationID, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	report := s.dispatcher.DispatchBatch(r.Context(), result)

	resp := batchFillResponse{
		Location:           result.Location,
		Updated:            result.Updated,
		LocationBecameFull: result.LocationBecameFull,
		Push:               newPushReport(report),
	}
	for _, entryErr := range result.Errors {
		resp.Errors = append(resp.Errors, batchEntryError{
			ContainerID: entryErr.ContainerID,
			Error:       entryErr.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type pickupRequest struct {
	Notes       string `json:"notes"`
	CollectedBy string `json:"collected_by"`
}

func (s *Server) recordPickup(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req pickupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := s.coordinator.RecordPickup(r.Context(), locationID, req.Notes, req.CollectedBy)
	if err != nil {
		writeError(w, err)
		return
	}

	location, err := s.coordinator.GetLocation(r.Context(), locationID)
	if err == nil {
		containers, cerr := s.coordinator.GetLocationContainers(r.Context(), locationID)
		if cerr == nil {
			s.dispatcher.DispatchPickup(r.Context(), location.Snapshot(), containers)
		}
	}
	writeJSON(w, http.StatusCreated, record)
}

type tokenRequest struct {
	UserID     types.UniqueID `json:"user_id"`
	Token      string         `json:"token"`
	DeviceInfo string         `json:"device_info"`
}

func (s *Server) registerToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	if err := s.coordinator.RegisterToken(r.Context(), req.UserID, req.Token, req.DeviceInfo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) unregisterToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.UnregisterToken(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.HeartbeatToken(r.Context(), req.Token, time.Now().UTC()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
