package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/status"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// maxConflictRetries bounds how often an update is replayed after the
// catalog reports a persistence conflict.
const maxConflictRetries = 3

// ICoordinator is an interface that defines the methods for applying
// fill level updates and managing the catalog. It is designed in a way
// that can be run standalone without spinning off the HTTP service.
type ICoordinator interface {
	common.Component
	ResetState(ctx context.Context) error
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	CreateUser(ctx context.Context, user *model.User) error
	CreateLocation(ctx context.Context, createLocation *model.CreateLocation) (*model.Location, error)
	CreateContainer(ctx context.Context, createContainer *model.CreateContainer) (*model.Container, error)
	DeleteLocation(ctx context.Context, locationID types.UniqueID) error
	GetLocation(ctx context.Context, locationID types.UniqueID) (*model.Location, error)
	GetLocationContainers(ctx context.Context, locationID types.UniqueID) ([]*model.Container, error)
	GetTenantLocations(ctx context.Context, tenantID string) ([]*model.Location, error)
	ApplyFillLevel(ctx context.Context, containerID types.UniqueID, fillLevel int) (*model.UpdateOutcome, error)
	ApplyFillLevels(ctx context.Context, locationID types.UniqueID, entries []model.BatchEntry) (*model.BatchResult, error)
	RecordPickup(ctx context.Context, locationID types.UniqueID, notes string, collectedBy string) (*model.PickupRecord, error)
	RegisterToken(ctx context.Context, userID types.UniqueID, token string, deviceInfo string) error
	UnregisterToken(ctx context.Context, token string) error
	HeartbeatToken(ctx context.Context, token string, seenAt time.Time) error
}

func (s *Coordinator) ResetState(ctx context.Context) error {
	return s.catalog.ResetState(ctx)
}

func (s *Coordinator) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	if tenant.ID == "" {
		return errors.New("tenant ID cannot be empty")
	}
	return s.catalog.CreateTenant(ctx, tenant)
}

func (s *Coordinator) CreateUser(ctx context.Context, user *model.User) error {
	return s.catalog.CreateUser(ctx, user)
}

func (s *Coordinator) CreateLocation(ctx context.Context, createLocation *model.CreateLocation) (*model.Location, error) {
	if createLocation.ID == types.NilUniqueID() {
		createLocation.ID = types.NewUniqueID()
	}
	return s.catalog.CreateLocation(ctx, createLocation)
}

func (s *Coordinator) CreateContainer(ctx context.Context, createContainer *model.CreateContainer) (*model.Container, error) {
	if createContainer.ID == types.NilUniqueID() {
		createContainer.ID = types.NewUniqueID()
	}
	if createContainer.Status == "" {
		containerStatus, err := status.ForFillLevel(createContainer.FillLevel)
		if err != nil {
			return nil, err
		}
		createContainer.Status = containerStatus
	}
	unlock := s.lockLocation(createContainer.LocationID)
	defer unlock()
	return s.catalog.CreateContainer(ctx, createContainer)
}

func (s *Coordinator) DeleteLocation(ctx context.Context, locationID types.UniqueID) error {
	unlock := s.lockLocation(locationID)
	defer unlock()
	return s.catalog.DeleteLocation(ctx, locationID)
}

func (s *Coordinator) GetLocation(ctx context.Context, locationID types.UniqueID) (*model.Location, error) {
	return s.catalog.GetLocation(ctx, locationID)
}

func (s *Coordinator) GetLocationContainers(ctx context.Context, locationID types.UniqueID) ([]*model.Container, error) {
	return s.catalog.GetLocationContainers(ctx, locationID)
}

func (s *Coordinator) GetTenantLocations(ctx context.Context, tenantID string) ([]*model.Location, error) {
	return s.catalog.GetTenantLocations(ctx, tenantID)
}

// ApplyFillLevel records a sensor reading for one container and
// recomputes the status of its location. The container update and the
// location update commit together. LocationBecameFull is true only when
// this call moved the location from a non-full status into full.
func (s *Coordinator) ApplyFillLevel(ctx context.Context, containerID types.UniqueID, fillLevel int) (*model.UpdateOutcome, error) {
	containerStatus, err := status.ForFillLevel(fillLevel)
	if err != nil {
		return nil, err
	}

	// Resolve the owning location outside the lock. A container never
	// moves between locations, so the resolution stays valid.
	container, err := s.catalog.GetContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockLocation(container.LocationID)
	defer unlock()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		outcome, err := s.applyFillLevel(ctx, container.LocationID, containerID, fillLevel, containerStatus)
		if errors.Is(err, common.ErrPersistenceConflict) {
			log.Warn("fill level update conflicted, retrying",
				zap.String("containerID", containerID.String()),
				zap.Int("attempt", attempt+1))
			continue
		}
		return outcome, err
	}
	return nil, common.ErrConflictRetriesExhausted
}

func (s *Coordinator) applyFillLevel(ctx context.Context, locationID types.UniqueID, containerID types.UniqueID, fillLevel int, containerStatus model.Status) (*model.UpdateOutcome, error) {
	location, err := s.catalog.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	containers, err := s.catalog.GetLocationContainers(ctx, locationID)
	if err != nil {
		return nil, err
	}

	var target *model.Container
	for _, c := range containers {
		if c.ID == containerID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, common.ErrContainerNotFound
	}

	now := time.Now().UTC()
	target.FillLevel = fillLevel
	target.Status = containerStatus
	target.UpdatedAt = now

	statuses := make([]model.Status, 0, len(containers))
	for _, c := range containers {
		statuses = append(statuses, c.Status)
	}
	locationStatus := status.ForContainers(statuses)
	becameFull := location.Status != model.StatusFull && locationStatus == model.StatusFull
	location.Status = locationStatus
	location.UpdatedAt = now
	var transitionAt time.Time
	if becameFull {
		location.LastFullAt = &now
		transitionAt = now
	}

	if err := s.catalog.ApplyContainerUpdate(ctx, target, location); err != nil {
		return nil, err
	}
	return &model.UpdateOutcome{
		Container:          target,
		Location:           location.Snapshot(),
		LocationBecameFull: becameFull,
		TransitionAt:       transitionAt,
	}, nil
}

// ApplyFillLevels applies a batch of readings against one location.
// Invalid entries are reported per entry and do not fail the batch; the
// valid entries commit together and the location status is recomputed
// once over the final container states, so a batch fires at most one
// full transition.
func (s *Coordinator) ApplyFillLevels(ctx context.Context, locationID types.UniqueID, entries []model.BatchEntry) (*model.BatchResult, error) {
	if len(entries) == 0 {
		return nil, common.ErrEmptyBatch
	}

	unlock := s.lockLocation(locationID)
	defer unlock()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, err := s.applyFillLevels(ctx, locationID, entries)
		if errors.Is(err, common.ErrPersistenceConflict) {
			log.Warn("batch update conflicted, retrying",
				zap.String("locationID", locationID.String()),
				zap.Int("attempt", attempt+1))
			continue
		}
		return result, err
	}
	return nil, common.ErrConflictRetriesExhausted
}

func (s *Coordinator) applyFillLevels(ctx context.Context, locationID types.UniqueID, entries []model.BatchEntry) (*model.BatchResult, error) {
	location, err := s.catalog.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	containers, err := s.catalog.GetLocationContainers(ctx, locationID)
	if err != nil {
		return nil, err
	}
	byID := make(map[types.UniqueID]*model.Container, len(containers))
	for _, c := range containers {
		byID[c.ID] = c
	}

	now := time.Now().UTC()
	result := &model.BatchResult{}
	touched := make(map[types.UniqueID]bool, len(entries))
	for _, entry := range entries {
		containerStatus, err := status.ForFillLevel(entry.FillLevel)
		if err != nil {
			result.Errors = append(result.Errors, model.BatchEntryError{ContainerID: entry.ContainerID, Err: err})
			continue
		}
		container, ok := byID[entry.ContainerID]
		if !ok {
			result.Errors = append(result.Errors, model.BatchEntryError{ContainerID: entry.ContainerID, Err: common.ErrContainerNotInLocation})
			continue
		}
		container.FillLevel = entry.FillLevel
		container.Status = containerStatus
		container.UpdatedAt = now
		if !touched[entry.ContainerID] {
			touched[entry.ContainerID] = true
			result.Updated = append(result.Updated, container)
		}
	}

	if len(result.Updated) == 0 {
		result.Location = location.Snapshot()
		return result, nil
	}

	statuses := make([]model.Status, 0, len(containers))
	for _, c := range containers {
		statuses = append(statuses, c.Status)
	}
	locationStatus := status.ForContainers(statuses)
	becameFull := location.Status != model.StatusFull && locationStatus == model.StatusFull
	location.Status = locationStatus
	location.UpdatedAt = now
	if becameFull {
		location.LastFullAt = &now
		result.TransitionAt = now
	}
	result.LocationBecameFull = becameFull

	if err := s.catalog.ApplyBatchUpdate(ctx, result.Updated, location); err != nil {
		return nil, err
	}
	result.Location = location.Snapshot()
	return result, nil
}

// RecordPickup marks a waste collection at a location: every container
// is emptied, the location drops to empty and LastCollection is
// stamped. Emptying never fires a full transition.
func (s *Coordinator) RecordPickup(ctx context.Context, locationID types.UniqueID, notes string, collectedBy string) (*model.PickupRecord, error) {
	unlock := s.lockLocation(locationID)
	defer unlock()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		record, err := s.recordPickup(ctx, locationID, notes, collectedBy)
		if errors.Is(err, common.ErrPersistenceConflict) {
			log.Warn("pickup conflicted, retrying",
				zap.String("locationID", locationID.String()),
				zap.Int("attempt", attempt+1))
			continue
		}
		return record, err
	}
	return nil, common.ErrConflictRetriesExhausted
}

func (s *Coordinator) recordPickup(ctx context.Context, locationID types.UniqueID, notes string, collectedBy string) (*model.PickupRecord, error) {
	location, err := s.catalog.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	containers, err := s.catalog.GetLocationContainers(ctx, locationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, c := range containers {
		c.FillLevel = 0
		c.Status = model.StatusEmpty
		c.UpdatedAt = now
	}
	location.Status = model.StatusEmpty
	location.LastCollection = &now
	location.UpdatedAt = now

	record := &model.PickupRecord{
		ID:              types.NewUniqueID(),
		LocationID:      locationID,
		CollectedAt:     now,
		ContainersCount: len(containers),
		Notes:           notes,
		CollectedBy:     collectedBy,
	}
	if err := s.catalog.RecordPickup(ctx, record, containers, location); err != nil {
		return nil, err
	}
	log.Info("pickup recorded",
		zap.String("locationID", locationID.String()),
		zap.Int("containers", len(containers)))
	return record, nil
}

func (s *Coordinator) RegisterToken(ctx context.Context, userID types.UniqueID, token string, deviceInfo string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	return s.catalog.UpsertToken(ctx, &model.PushToken{
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
	})
}

func (s *Coordinator) UnregisterToken(ctx context.Context, token string) error {
	return s.catalog.DeleteToken(ctx, token)
}

func (s *Coordinator) HeartbeatToken(ctx context.Context, token string, seenAt time.Time) error {
	return s.catalog.TouchToken(ctx, token, seenAt)
}
