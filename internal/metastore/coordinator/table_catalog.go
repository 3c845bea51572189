package coordinator

import (
	"context"
	"time"

	"github.com/ecotracker/fillstate/internal/metastore"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// The catalog backed by databases using GORM.
type Catalog struct {
	metaDomain dbmodel.IMetaDomain
	txImpl     dbmodel.ITransaction
}

func NewTableCatalog(txImpl dbmodel.ITransaction, metaDomain dbmodel.IMetaDomain) *Catalog {
	return &Catalog{
		txImpl:     txImpl,
		metaDomain: metaDomain,
	}
}

var _ metastore.Catalog = (*Catalog)(nil)

func (tc *Catalog) ResetState(ctx context.Context) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		if err := tc.metaDomain.PickupDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset pickup db", zap.Error(err))
			return err
		}
		if err := tc.metaDomain.ContainerDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset container db", zap.Error(err))
			return err
		}
		if err := tc.metaDomain.LocationDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset location db", zap.Error(err))
			return err
		}
		if err := tc.metaDomain.PushTokenDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset push token db", zap.Error(err))
			return err
		}
		if err := tc.metaDomain.UserDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset user db", zap.Error(err))
			return err
		}
		if err := tc.metaDomain.TenantDb(txCtx).DeleteAll(); err != nil {
			log.Error("error reset tenant db", zap.Error(err))
			return err
		}
		return nil
	})
}

func (tc *Catalog) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		return tc.metaDomain.TenantDb(txCtx).Insert(&dbmodel.Tenant{
			ID:   tenant.ID,
			Name: tenant.Name,
		})
	})
}

func (tc *Catalog) CreateUser(ctx context.Context, user *model.User) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		return tc.metaDomain.UserDb(txCtx).Insert(&dbmodel.User{
			ID:       user.ID.String(),
			TenantID: user.TenantID,
			Email:    user.Email,
		})
	})
}

func (tc *Catalog) CreateLocation(ctx context.Context, createLocation *model.CreateLocation) (*model.Location, error) {
	var result *model.Location

	err := tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		dbLocation := &dbmodel.Location{
			ID:       createLocation.ID.String(),
			TenantID: createLocation.TenantID,
			Name:     createLocation.Name,
			Address:  createLocation.Address,
			Lat:      createLocation.Lat,
			Lng:      createLocation.Lng,
			Status:   string(model.StatusEmpty),
		}
		if err := tc.metaDomain.LocationDb(txCtx).Insert(dbLocation); err != nil {
			return err
		}
		created, err := tc.metaDomain.LocationDb(txCtx).GetByID(dbLocation.ID)
		if err != nil {
			return err
		}
		result, err = convertLocationToModel(created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (tc *Catalog) CreateContainer(ctx context.Context, createContainer *model.CreateContainer) (*model.Container, error) {
	var result *model.Container

	err := tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		// The owning location must exist.
		if _, err := tc.metaDomain.LocationDb(txCtx).GetByID(createContainer.LocationID.String()); err != nil {
			return err
		}
		status := createContainer.Status
		if status == "" {
			status = model.StatusEmpty
		}
		dbContainer := &dbmodel.Container{
			ID:         createContainer.ID.String(),
			LocationID: createContainer.LocationID.String(),
			Number:     createContainer.Number,
			FillLevel:  createContainer.FillLevel,
			Status:     string(status),
		}
		if err := tc.metaDomain.ContainerDb(txCtx).Insert(dbContainer); err != nil {
			return err
		}
		created, err := tc.metaDomain.ContainerDb(txCtx).GetByID(dbContainer.ID)
		if err != nil {
			return err
		}
		result, err = convertContainerToModel(created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (tc *Catalog) DeleteLocation(ctx context.Context, locationID types.UniqueID) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := tc.metaDomain.LocationDb(txCtx).GetByID(locationID.String()); err != nil {
			return err
		}
		return tc.metaDomain.LocationDb(txCtx).DeleteByID(locationID.String())
	})
}

func (tc *Catalog) GetContainer(ctx context.Context, containerID types.UniqueID) (*model.Container, error) {
	dbContainer, err := tc.metaDomain.ContainerDb(ctx).GetByID(containerID.String())
	if err != nil {
		return nil, err
	}
	return convertContainerToModel(dbContainer)
}

func (tc *Catalog) GetLocation(ctx context.Context, locationID types.UniqueID) (*model.Location, error) {
	dbLocation, err := tc.metaDomain.LocationDb(ctx).GetByID(locationID.String())
	if err != nil {
		return nil, err
	}
	return convertLocationToModel(dbLocation)
}

func (tc *Catalog) GetLocationContainers(ctx context.Context, locationID types.UniqueID) ([]*model.Container, error) {
	if _, err := tc.metaDomain.LocationDb(ctx).GetByID(locationID.String()); err != nil {
		return nil, err
	}
	dbContainers, err := tc.metaDomain.ContainerDb(ctx).GetByLocation(locationID.String())
	if err != nil {
		return nil, err
	}
	containers := make([]*model.Container, 0, len(dbContainers))
	for _, dbContainer := range dbContainers {
		container, err := convertContainerToModel(dbContainer)
		if err != nil {
			return nil, err
		}
		containers = append(containers, container)
	}
	return containers, nil
}

func (tc *Catalog) GetTenantLocations(ctx context.Context, tenantID string) ([]*model.Location, error) {
	dbLocations, err := tc.metaDomain.LocationDb(ctx).GetByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	locations := make([]*model.Location, 0, len(dbLocations))
	for _, dbLocation := range dbLocations {
		location, err := convertLocationToModel(dbLocation)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, nil
}

// ApplyContainerUpdate commits a container update together with the
// recomputed state of its location in one transaction.
func (tc *Catalog) ApplyContainerUpdate(ctx context.Context, container *model.Container, location *model.Location) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		if err := tc.metaDomain.ContainerDb(txCtx).Update(convertContainerToDB(container)); err != nil {
			return err
		}
		return tc.metaDomain.LocationDb(txCtx).Update(convertLocationToDB(location))
	})
}

func (tc *Catalog) ApplyBatchUpdate(ctx context.Context, containers []*model.Container, location *model.Location) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		for _, container := range containers {
			if err := tc.metaDomain.ContainerDb(txCtx).Update(convertContainerToDB(container)); err != nil {
				return err
			}
		}
		return tc.metaDomain.LocationDb(txCtx).Update(convertLocationToDB(location))
	})
}

func (tc *Catalog) RecordPickup(ctx context.Context, record *model.PickupRecord, containers []*model.Container, location *model.Location) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		for _, container := range containers {
			if err := tc.metaDomain.ContainerDb(txCtx).Update(convertContainerToDB(container)); err != nil {
				return err
			}
		}
		if err := tc.metaDomain.LocationDb(txCtx).Update(convertLocationToDB(location)); err != nil {
			return err
		}
		return tc.metaDomain.PickupDb(txCtx).Insert(&dbmodel.PickupRecord{
			ID:              record.ID.String(),
			LocationID:      record.LocationID.String(),
			CollectedAt:     record.CollectedAt,
			ContainersCount: record.ContainersCount,
			Notes:           record.Notes,
			CollectedBy:     record.CollectedBy,
		})
	})
}

func (tc *Catalog) GetTenantUsers(ctx context.Context, tenantID string) ([]*model.User, error) {
	dbUsers, err := tc.metaDomain.UserDb(ctx).GetByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(dbUsers))
	for _, dbUser := range dbUsers {
		id, err := types.Parse(dbUser.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, &model.User{
			ID:       id,
			TenantID: dbUser.TenantID,
			Email:    dbUser.Email,
		})
	}
	return users, nil
}

func (tc *Catalog) GetUserTokens(ctx context.Context, userID types.UniqueID) ([]*model.PushToken, error) {
	dbTokens, err := tc.metaDomain.PushTokenDb(ctx).GetByUser(userID.String())
	if err != nil {
		return nil, err
	}
	return convertTokensToModel(dbTokens)
}

func (tc *Catalog) GetTenantTokens(ctx context.Context, tenantID string) ([]*model.PushToken, error) {
	dbTokens, err := tc.metaDomain.PushTokenDb(ctx).GetByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	return convertTokensToModel(dbTokens)
}

func (tc *Catalog) UpsertToken(ctx context.Context, token *model.PushToken) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()
		existing, err := tc.metaDomain.PushTokenDb(txCtx).GetByToken(token.Token)
		if err == nil {
			// Re-registered tokens keep their heartbeat but may move
			// between users when a device changes hands.
			existing.UserID = token.UserID.String()
			existing.DeviceInfo = token.DeviceInfo
			existing.UpdatedAt = now
			return tc.metaDomain.PushTokenDb(txCtx).Update(existing)
		}
		id := token.ID
		if id == types.NilUniqueID() {
			id = types.NewUniqueID()
		}
		return tc.metaDomain.PushTokenDb(txCtx).Insert(&dbmodel.PushToken{
			ID:         id.String(),
			UserID:     token.UserID.String(),
			Token:      token.Token,
			DeviceInfo: token.DeviceInfo,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
}

func (tc *Catalog) DeleteToken(ctx context.Context, token string) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		return tc.metaDomain.PushTokenDb(txCtx).DeleteByToken(token)
	})
}

func (tc *Catalog) TouchToken(ctx context.Context, token string, seenAt time.Time) error {
	return tc.txImpl.Transaction(ctx, func(txCtx context.Context) error {
		existing, err := tc.metaDomain.PushTokenDb(txCtx).GetByToken(token)
		if err != nil {
			return err
		}
		existing.LastSeenAt = &seenAt
		existing.UpdatedAt = seenAt
		return tc.metaDomain.PushTokenDb(txCtx).Update(existing)
	})
}

func convertContainerToModel(in *dbmodel.Container) (*model.Container, error) {
	id, err := types.Parse(in.ID)
	if err != nil {
		return nil, err
	}
	locationID, err := types.Parse(in.LocationID)
	if err != nil {
		return nil, err
	}
	return &model.Container{
		ID:         id,
		LocationID: locationID,
		Number:     in.Number,
		FillLevel:  in.FillLevel,
		Status:     model.Status(in.Status),
		CreatedAt:  in.CreatedAt,
		UpdatedAt:  in.UpdatedAt,
	}, nil
}

func convertLocationToModel(in *dbmodel.Location) (*model.Location, error) {
	id, err := types.Parse(in.ID)
	if err != nil {
		return nil, err
	}
	return &model.Location{
		ID:             id,
		TenantID:       in.TenantID,
		Name:           in.Name,
		Address:        in.Address,
		Lat:            in.Lat,
		Lng:            in.Lng,
		Status:         model.Status(in.Status),
		LastFullAt:     in.LastFullAt,
		LastCollection: in.LastCollection,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}, nil
}

func convertContainerToDB(in *model.Container) *dbmodel.Container {
	return &dbmodel.Container{
		ID:         in.ID.String(),
		LocationID: in.LocationID.String(),
		Number:     in.Number,
		FillLevel:  in.FillLevel,
		Status:     string(in.Status),
		UpdatedAt:  in.UpdatedAt,
	}
}

func convertLocationToDB(in *model.Location) *dbmodel.Location {
	return &dbmodel.Location{
		ID:             in.ID.String(),
		TenantID:       in.TenantID,
		Name:           in.Name,
		Address:        in.Address,
		Lat:            in.Lat,
		Lng:            in.Lng,
		Status:         string(in.Status),
		LastFullAt:     in.LastFullAt,
		LastCollection: in.LastCollection,
		UpdatedAt:      in.UpdatedAt,
	}
}

func convertTokensToModel(dbTokens []*dbmodel.PushToken) ([]*model.PushToken, error) {
	tokens := make([]*model.PushToken, 0, len(dbTokens))
	for _, dbToken := range dbTokens {
		id, err := types.Parse(dbToken.ID)
		if err != nil {
			return nil, err
		}
		userID, err := types.Parse(dbToken.UserID)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, &model.PushToken{
			ID:         id,
			UserID:     userID,
			Token:      dbToken.Token,
			DeviceInfo: dbToken.DeviceInfo,
			LastSeenAt: dbToken.LastSeenAt,
			CreatedAt:  dbToken.CreatedAt,
			UpdatedAt:  dbToken.UpdatedAt,
		})
	}
	return tokens, nil
}
