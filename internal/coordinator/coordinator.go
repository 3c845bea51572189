package coordinator

import (
	"context"
	"sync"

	"github.com/ecotracker/fillstate/internal/metastore"
	"github.com/ecotracker/fillstate/internal/metastore/coordinator"
	"github.com/ecotracker/fillstate/internal/metastore/db/dao"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbcore"
	"github.com/ecotracker/fillstate/internal/types"
	"gorm.io/gorm"
)

var _ ICoordinator = (*Coordinator)(nil)

// Coordinator is the implementation of ICoordinator. It is the top level
// component: every fill level update, batch and pickup goes through it so
// that status recomputation of a location is serialized per location.
type Coordinator struct {
	ctx     context.Context
	catalog metastore.Catalog

	mu            sync.Mutex
	locationLocks map[types.UniqueID]*sync.Mutex
}

func NewCoordinator(ctx context.Context, catalog metastore.Catalog) (*Coordinator, error) {
	s := &Coordinator{
		ctx:           ctx,
		catalog:       catalog,
		locationLocks: make(map[types.UniqueID]*sync.Mutex),
	}
	return s, nil
}

// NewMemoryCoordinator keeps all state in process memory. Used by tests
// and single node deployments without a database.
func NewMemoryCoordinator(ctx context.Context) (*Coordinator, error) {
	return NewCoordinator(ctx, coordinator.NewMemoryCatalog())
}

// NewTableCoordinator persists through GORM. The db handle is registered
// globally so transactions opened by the catalog can be picked up from
// the context.
func NewTableCoordinator(ctx context.Context, db *gorm.DB) (*Coordinator, error) {
	dbcore.SetGlobalDB(db)
	catalog := coordinator.NewTableCatalog(dbcore.NewTxImpl(), dao.NewMetaDomain())
	return NewCoordinator(ctx, catalog)
}

func (s *Coordinator) Start() error {
	return nil
}

func (s *Coordinator) Stop() error {
	return nil
}

// lockLocation serializes updates of one location. Locks are never
// removed from the map; the set of locations is small and long lived.
func (s *Coordinator) lockLocation(locationID types.UniqueID) func() {
	s.mu.Lock()
	lock, ok := s.locationLocks[locationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locationLocks[locationID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
