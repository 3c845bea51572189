package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/types"
)

// MemoryCatalog is a reference implementation of the Catalog interface
// to ensure the application logic is correctly implemented. It backs
// unit tests and the "memory" catalog provider.
type MemoryCatalog struct {
	mu         sync.Mutex
	Tenants    map[string]*model.Tenant
	Users      map[types.UniqueID]*model.User
	Locations  map[types.UniqueID]*model.Location
	Containers map[types.UniqueID]*model.Container
	Tokens     map[string]*model.PushToken
	Pickups    map[types.UniqueID][]*model.PickupRecord
}

var _ metastore.Catalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	mc := &MemoryCatalog{}
	mc.reset()
	return mc
}

func (mc *MemoryCatalog) reset() {
	mc.Tenants = make(map[string]*model.Tenant)
	mc.Users = make(map[types.UniqueID]*model.User)
	mc.Locations = make(map[types.UniqueID]*model.Location)
	mc.Containers = make(map[types.UniqueID]*model.Container)
	mc.Tokens = make(map[string]*model.PushToken)
	mc.Pickups = make(map[types.UniqueID][]*model.PickupRecord)
}

func (mc *MemoryCatalog) ResetState(ctx context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.reset()
	return nil
}

func (mc *MemoryCatalog) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Tenants[tenant.ID]; ok {
		return common.ErrTenantUniqueConstraintViolation
	}
	t := *tenant
	mc.Tenants[tenant.ID] = &t
	return nil
}

func (mc *MemoryCatalog) CreateUser(ctx context.Context, user *model.User) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	u := *user
	mc.Users[user.ID] = &u
	return nil
}

func (mc *MemoryCatalog) CreateLocation(ctx context.Context, createLocation *model.CreateLocation) (*model.Location, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Locations[createLocation.ID]; ok {
		return nil, common.ErrLocationUniqueConstraintViolation
	}
	now := time.Now().UTC()
	location := &model.Location{
		ID:        createLocation.ID,
		TenantID:  createLocation.TenantID,
		Name:      createLocation.Name,
		Address:   createLocation.Address,
		Lat:       createLocation.Lat,
		Lng:       createLocation.Lng,
		Status:    model.StatusEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mc.Locations[location.ID] = location
	copied := *location
	return &copied, nil
}

func (mc *MemoryCatalog) CreateContainer(ctx context.Context, createContainer *model.CreateContainer) (*model.Container, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Containers[createContainer.ID]; ok {
		return nil, common.ErrContainerUniqueConstraintViolation
	}
	if _, ok := mc.Locations[createContainer.LocationID]; !ok {
		return nil, common.ErrLocationNotFound
	}
	now := time.Now().UTC()
	status := createContainer.Status
	if status == "" {
		status = model.StatusEmpty
	}
	container := &model.Container{
		ID:         createContainer.ID,
		LocationID: createContainer.LocationID,
		Number:     createContainer.Number,
		FillLevel:  createContainer.FillLevel,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	mc.Containers[container.ID] = container
	copied := *container
	return &copied, nil
}

// DeleteLocation removes the location together with the containers it
// owns.
func (mc *MemoryCatalog) DeleteLocation(ctx context.Context, locationID types.UniqueID) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Locations[locationID]; !ok {
		return common.ErrLocationNotFound
	}
	delete(mc.Locations, locationID)
	for id, container := range mc.Containers {
		if container.LocationID == locationID {
			delete(mc.Containers, id)
		}
	}
	delete(mc.Pickups, locationID)
	return nil
}

func (mc *MemoryCatalog) GetContainer(ctx context.Context, containerID types.UniqueID) (*model.Container, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	container, ok := mc.Containers[containerID]
	if !ok {
		return nil, common.ErrContainerNotFound
	}
	copied := *container
	return &copied, nil
}

func (mc *MemoryCatalog) GetLocation(ctx context.Context, locationID types.UniqueID) (*model.Location, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	location, ok := mc.Locations[locationID]
	if !ok {
		return nil, common.ErrLocationNotFound
	}
	copied := *location
	return &copied, nil
}

func (mc *MemoryCatalog) GetLocationContainers(ctx context.Context, locationID types.UniqueID) ([]*model.Container, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Locations[locationID]; !ok {
		return nil, common.ErrLocationNotFound
	}
	containers := make([]*model.Container, 0)
	for _, container := range mc.Containers {
		if container.LocationID == locationID {
			copied := *container
			containers = append(containers, &copied)
		}
	}
	return containers, nil
}

func (mc *MemoryCatalog) GetTenantLocations(ctx context.Context, tenantID string) ([]*model.Location, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	locations := make([]*model.Location, 0)
	for _, location := range mc.Locations {
		if location.TenantID == tenantID {
			copied := *location
			locations = append(locations, &copied)
		}
	}
	return locations, nil
}

func (mc *MemoryCatalog) ApplyContainerUpdate(ctx context.Context, container *model.Container, location *model.Location) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Containers[container.ID]; !ok {
		return common.ErrContainerNotFound
	}
	if _, ok := mc.Locations[location.ID]; !ok {
		return common.ErrLocationNotFound
	}
	copiedContainer := *container
	copiedLocation := *location
	mc.Containers[container.ID] = &copiedContainer
	mc.Locations[location.ID] = &copiedLocation
	return nil
}

func (mc *MemoryCatalog) ApplyBatchUpdate(ctx context.Context, containers []*model.Container, location *model.Location) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	// Validate everything before touching any entry so the batch is
	// all-or-nothing.
	if _, ok := mc.Locations[location.ID]; !ok {
		return common.ErrLocationNotFound
	}
	for _, container := range containers {
		if _, ok := mc.Containers[container.ID]; !ok {
			return common.ErrContainerNotFound
		}
	}
	for _, container := range containers {
		copied := *container
		mc.Containers[container.ID] = &copied
	}
	copiedLocation := *location
	mc.Locations[location.ID] = &copiedLocation
	return nil
}

func (mc *MemoryCatalog) RecordPickup(ctx context.Context, record *model.PickupRecord, containers []*model.Container, location *model.Location) error {
	if err := mc.ApplyBatchUpdate(ctx, containers, location); err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	copied := *record
	mc.Pickups[record.LocationID] = append(mc.Pickups[record.LocationID], &copied)
	return nil
}

func (mc *MemoryCatalog) GetTenantUsers(ctx context.Context, tenantID string) ([]*model.User, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	users := make([]*model.User, 0)
	for _, user := range mc.Users {
		if user.TenantID == tenantID {
			copied := *user
			users = append(users, &copied)
		}
	}
	return users, nil
}

func (mc *MemoryCatalog) GetUserTokens(ctx context.Context, userID types.UniqueID) ([]*model.PushToken, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	tokens := make([]*model.PushToken, 0)
	for _, token := range mc.Tokens {
		if token.UserID == userID {
			copied := *token
			tokens = append(tokens, &copied)
		}
	}
	return tokens, nil
}

func (mc *MemoryCatalog) GetTenantTokens(ctx context.Context, tenantID string) ([]*model.PushToken, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	tokens := make([]*model.PushToken, 0)
	for _, token := range mc.Tokens {
		user, ok := mc.Users[token.UserID]
		if !ok || user.TenantID != tenantID {
			continue
		}
		copied := *token
		tokens = append(tokens, &copied)
	}
	return tokens, nil
}

func (mc *MemoryCatalog) UpsertToken(ctx context.Context, token *model.PushToken) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := mc.Tokens[token.Token]
	if ok {
		existing.UserID = token.UserID
		existing.DeviceInfo = token.DeviceInfo
		existing.UpdatedAt = now
		return nil
	}
	copied := *token
	if copied.ID == types.NilUniqueID() {
		copied.ID = types.NewUniqueID()
	}
	copied.CreatedAt = now
	copied.UpdatedAt = now
	mc.Tokens[token.Token] = &copied
	return nil
}

func (mc *MemoryCatalog) DeleteToken(ctx context.Context, token string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.Tokens[token]; !ok {
		return common.ErrTokenNotFound
	}
	delete(mc.Tokens, token)
	return nil
}

func (mc *MemoryCatalog) TouchToken(ctx context.Context, token string, seenAt time.Time) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	existing, ok := mc.Tokens[token]
	if !ok {
		return common.ErrTokenNotFound
	}
	existing.LastSeenAt = &seenAt
	existing.UpdatedAt = seenAt
	return nil
}
