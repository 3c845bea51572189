package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/notification"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (s *recordingSender) Send(ctx context.Context, token string, n notification.PushNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, token)
	if s.fail[token] {
		return errors.New("fcm: service unavailable")
	}
	return nil
}

func (s *recordingSender) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type testEnv struct {
	server   *Server
	sender   *recordingSender
	httpSrv  *httptest.Server
	tenantID string
	userID   types.UniqueID
	location types.UniqueID
}

func newTestEnv(t *testing.T) *testEnv {
	sender := &recordingSender{}
	s, err := New(Config{
		CatalogProvider:            "memory",
		PushFreshnessWindowSeconds: 10,
		PushSender:                 sender,
		Testing:                    true,
	})
	require.NoError(t, err)
	httpSrv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		httpSrv.Close()
		s.Close()
	})
	return &testEnv{server: s, sender: sender, httpSrv: httpSrv, tenantID: "tenant1"}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, expectStatus int) map[string]interface{} {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.httpSrv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, expectStatus, resp.StatusCode, "unexpected status for %s %s", method, path)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func (e *testEnv) provision(t *testing.T, containerCount int) []types.UniqueID {
	e.doJSON(t, http.MethodPost, "/api/tenants",
		map[string]string{"id": e.tenantID, "name": "Tenant One"}, http.StatusCreated)

	userResp := e.doJSON(t, http.MethodPost, "/api/tenants/"+e.tenantID+"/users",
		map[string]string{"email": "ops@tenant1.example"}, http.StatusCreated)
	e.userID = types.MustParse(userResp["id"].(string))

	locResp := e.doJSON(t, http.MethodPost, "/api/tenants/"+e.tenantID+"/locations",
		map[string]interface{}{"name": "Depot North", "address": "1 Harbor Way"}, http.StatusCreated)
	e.location = types.MustParse(locResp["id"].(string))

	containerIDs := make([]types.UniqueID, 0, containerCount)
	for i := 0; i < containerCount; i++ {
		resp := e.doJSON(t, http.MethodPost, fmt.Sprintf("/api/locations/%s/containers", e.location),
			map[string]int{"number": i + 1}, http.StatusCreated)
		containerIDs = append(containerIDs, types.MustParse(resp["id"].(string)))
	}
	return containerIDs
}

func (e *testEnv) dialWS(t *testing.T) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(e.httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "tenant_id": e.tenantID}))
	require.Eventually(t, func() bool {
		return e.server.registry.HasObservers(e.tenantID)
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestEndToEndFillToFullScenario(t *testing.T) {
	env := newTestEnv(t)
	containerIDs := env.provision(t, 3)

	// One token that was last seen long before the update, one token
	// whose owner is observed after it.
	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-stale", "device_info": "android"},
		http.StatusCreated)
	env.doJSON(t, http.MethodPost, "/api/fcm/heartbeat",
		map[string]string{"token": "tok-stale"}, http.StatusOK)
	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-aware", "device_info": "web"},
		http.StatusCreated)
	require.NoError(t, env.server.coordinator.HeartbeatToken(context.Background(),
		"tok-aware", time.Now().UTC().Add(time.Hour)))

	conn := env.dialWS(t)

	for i, containerID := range containerIDs {
		resp := env.doJSON(t, http.MethodPost,
			fmt.Sprintf("/api/sensors/containers/%s/fill", containerID),
			map[string]int{"fill_level": 80}, http.StatusOK)
		becameFull := resp["location_became_full"].(bool)
		assert.Equal(t, i == len(containerIDs)-1, becameFull)

		// The response carries the push leg outcome: nothing until the
		// transition, then one delivery to the stale token.
		push := resp["push"].(map[string]interface{})
		if becameFull {
			assert.Equal(t, float64(1), push["attempted"])
			assert.Equal(t, float64(1), push["delivered"])
		} else {
			assert.Equal(t, float64(0), push["attempted"])
		}
	}

	// Each update produces one live event; the last reports full.
	var last model.UpdateEvent
	for range containerIDs {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&last))
	}
	assert.Equal(t, model.EventTypeContainerUpdated, last.Type)
	assert.Equal(t, model.StatusFull, last.Location.Status)
	assert.NotNil(t, last.Location.LastFullAt)

	assert.Equal(t, []string{"tok-stale"}, env.sender.tokens())

	locResp := env.doJSON(t, http.MethodGet, "/api/locations/"+env.location.String(), nil, http.StatusOK)
	location := locResp["location"].(map[string]interface{})
	assert.Equal(t, "full", location["status"])
	assert.NotNil(t, location["last_full_at"])
}

func TestBatchFillOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	containerIDs := env.provision(t, 2)

	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-1"}, http.StatusCreated)

	entries := []map[string]interface{}{
		{"container_id": containerIDs[0], "fill_level": 90},
		{"container_id": containerIDs[1], "fill_level": 85},
		{"container_id": types.NewUniqueID(), "fill_level": 50},
	}
	resp := env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/locations/%s/containers", env.location),
		map[string]interface{}{"containers": entries}, http.StatusOK)

	assert.True(t, resp["location_became_full"].(bool))
	assert.Len(t, resp["updated"].([]interface{}), 2)
	assert.Len(t, resp["errors"].([]interface{}), 1)

	push := resp["push"].(map[string]interface{})
	assert.Equal(t, float64(1), push["attempted"])
	assert.Equal(t, float64(1), push["delivered"])
}

func TestFillResponseReportsPushFailures(t *testing.T) {
	env := newTestEnv(t)
	containerIDs := env.provision(t, 1)
	env.sender.fail = map[string]bool{"tok-bad": true}

	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-bad"}, http.StatusCreated)
	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-good"}, http.StatusCreated)

	resp := env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/containers/%s/fill", containerIDs[0]),
		map[string]int{"fill_level": 100}, http.StatusOK)
	require.True(t, resp["location_became_full"].(bool))

	push := resp["push"].(map[string]interface{})
	assert.Equal(t, float64(2), push["attempted"])
	assert.Equal(t, float64(1), push["delivered"])
	failures := push["failures"].([]interface{})
	require.Len(t, failures, 1)
	failure := failures[0].(map[string]interface{})
	assert.Equal(t, "tok-bad", failure["token"])
	assert.NotEmpty(t, failure["error"])
}

func TestPickupOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	containerIDs := env.provision(t, 1)

	env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/containers/%s/fill", containerIDs[0]),
		map[string]int{"fill_level": 100}, http.StatusOK)

	pickup := env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/locations/%s/pickups", env.location),
		map[string]string{"notes": "route 7", "collected_by": "driver-12"}, http.StatusCreated)
	assert.Equal(t, float64(1), pickup["containers_count"])

	locResp := env.doJSON(t, http.MethodGet, "/api/locations/"+env.location.String(), nil, http.StatusOK)
	location := locResp["location"].(map[string]interface{})
	assert.Equal(t, "empty", location["status"])
	assert.NotNil(t, location["last_collection"])
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	containerIDs := env.provision(t, 1)

	// Out of range fill level.
	env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/containers/%s/fill", containerIDs[0]),
		map[string]int{"fill_level": 150}, http.StatusBadRequest)

	// Unknown container and location.
	env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/containers/%s/fill", types.NewUniqueID()),
		map[string]int{"fill_level": 10}, http.StatusNotFound)
	env.doJSON(t, http.MethodGet, "/api/locations/"+types.NewUniqueID().String(), nil, http.StatusNotFound)

	// Malformed id in the path.
	env.doJSON(t, http.MethodGet, "/api/locations/not-a-uuid", nil, http.StatusBadRequest)

	// Empty batch.
	env.doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/sensors/locations/%s/containers", env.location),
		map[string]interface{}{"containers": []interface{}{}}, http.StatusBadRequest)

	// Unknown token heartbeat.
	env.doJSON(t, http.MethodPost, "/api/fcm/heartbeat",
		map[string]string{"token": "missing"}, http.StatusNotFound)
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 0)

	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID, "token": "tok-1"}, http.StatusCreated)
	env.doJSON(t, http.MethodPost, "/api/fcm/heartbeat",
		map[string]string{"token": "tok-1"}, http.StatusOK)
	env.doJSON(t, http.MethodDelete, "/api/fcm/token",
		map[string]string{"token": "tok-1"}, http.StatusNoContent)
	env.doJSON(t, http.MethodDelete, "/api/fcm/token",
		map[string]string{"token": "tok-1"}, http.StatusNotFound)

	// Missing token body field.
	env.doJSON(t, http.MethodPost, "/api/fcm/token",
		map[string]interface{}{"user_id": env.userID}, http.StatusBadRequest)
}
