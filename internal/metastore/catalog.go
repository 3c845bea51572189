package metastore

import (
	"context"
	"time"

	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/types"
)

// Catalog is the persistence boundary of the system. ApplyContainerUpdate,
// ApplyBatchUpdate and RecordPickup commit a container/location pair
// all-or-nothing; a failed commit leaves both entities untouched.
//
//go:generate mockery --name=Catalog
type Catalog interface {
	ResetState(ctx context.Context) error

	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	CreateUser(ctx context.Context, user *model.User) error
	CreateLocation(ctx context.Context, location *model.CreateLocation) (*model.Location, error)
	CreateContainer(ctx context.Context, container *model.CreateContainer) (*model.Container, error)
	DeleteLocation(ctx context.Context, locationID types.UniqueID) error

	GetContainer(ctx context.Context, containerID types.UniqueID) (*model.Container, error)
	GetLocation(ctx context.Context, locationID types.UniqueID) (*model.Location, error)
	GetLocationContainers(ctx context.Context, locationID types.UniqueID) ([]*model.Container, error)
	GetTenantLocations(ctx context.Context, tenantID string) ([]*model.Location, error)

	ApplyContainerUpdate(ctx context.Context, container *model.Container, location *model.Location) error
	ApplyBatchUpdate(ctx context.Context, containers []*model.Container, location *model.Location) error
	RecordPickup(ctx context.Context, record *model.PickupRecord, containers []*model.Container, location *model.Location) error

	GetTenantUsers(ctx context.Context, tenantID string) ([]*model.User, error)
	GetUserTokens(ctx context.Context, userID types.UniqueID) ([]*model.PushToken, error)
	GetTenantTokens(ctx context.Context, tenantID string) ([]*model.PushToken, error)
	UpsertToken(ctx context.Context, token *model.PushToken) error
	DeleteToken(ctx context.Context, token string) error
	TouchToken(ctx context.Context, token string, seenAt time.Time) error
}
