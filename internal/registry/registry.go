package registry

import (
	"sync"

	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Registry tracks which tenants currently have live observer sessions.
// It is the single piece of process wide mutable shared state; every
// read and write goes through its methods under one lock.
//
// Operations are idempotent and never fail. A tenant entry exists iff
// it has at least one session, so HasObservers is a map presence check.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Join(tenantID string, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.tenants[tenantID]
	if !ok {
		sessions = make(map[string]struct{})
		r.tenants[tenantID] = sessions
	}
	sessions[sessionID] = struct{}{}
	log.Debug("observer joined tenant",
		zap.String("tenantID", tenantID),
		zap.String("sessionID", sessionID),
		zap.Int("observers", len(sessions)))
}

func (r *Registry) Leave(tenantID string, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(tenantID, sessionID)
}

// LeaveAll removes the session from every tenant entry it is a member
// of. Called once on disconnect; tolerates sessions that joined zero or
// several tenants.
func (r *Registry) LeaveAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tenantID, sessions := range r.tenants {
		if _, ok := sessions[sessionID]; ok {
			r.leaveLocked(tenantID, sessionID)
		}
	}
}

func (r *Registry) leaveLocked(tenantID string, sessionID string) {
	sessions, ok := r.tenants[tenantID]
	if !ok {
		return
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.tenants, tenantID)
	}
}

func (r *Registry) Count(tenantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants[tenantID])
}

func (r *Registry) HasObservers(tenantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tenants[tenantID]
	return ok
}

// Sessions returns a snapshot of the session ids observing a tenant.
func (r *Registry) Sessions(tenantID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.tenants[tenantID]
	out := make([]string, 0, len(sessions))
	for id := range sessions {
		out = append(out, id)
	}
	return out
}
