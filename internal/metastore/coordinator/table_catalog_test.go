package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore/db/dao"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbcore"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTableCatalogForTest(t *testing.T) *Catalog {
	db := dbcore.ConfigDatabaseForTesting()
	dbcore.SetGlobalDB(db)
	return NewTableCatalog(dbcore.NewTxImpl(), dao.NewMetaDomain())
}

func TestTableCatalogLifecycle(t *testing.T) {
	ctx := context.Background()
	tc := newTableCatalogForTest(t)

	require.NoError(t, tc.CreateTenant(ctx, &model.Tenant{ID: "tenant1", Name: "Tenant One"}))

	location, err := tc.CreateLocation(ctx, &model.CreateLocation{
		ID:       types.NewUniqueID(),
		TenantID: "tenant1",
		Name:     "Depot North",
		Address:  "1 Harbor Way",
		Lat:      53.55,
		Lng:      9.99,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusEmpty, location.Status)

	container, err := tc.CreateContainer(ctx, &model.CreateContainer{
		ID:         types.NewUniqueID(),
		LocationID: location.ID,
		Number:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusEmpty, container.Status)

	_, err = tc.CreateContainer(ctx, &model.CreateContainer{
		ID:         types.NewUniqueID(),
		LocationID: types.NewUniqueID(),
		Number:     2,
	})
	assert.ErrorIs(t, err, common.ErrLocationNotFound)

	now := time.Now().UTC()
	container.FillLevel = 85
	container.Status = model.StatusFull
	container.UpdatedAt = now
	location.Status = model.StatusFull
	location.LastFullAt = &now
	location.UpdatedAt = now
	require.NoError(t, tc.ApplyContainerUpdate(ctx, container, location))

	got, err := tc.GetLocation(ctx, location.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFull, got.Status)
	require.NotNil(t, got.LastFullAt)

	containers, err := tc.GetLocationContainers(ctx, location.ID)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, 85, containers[0].FillLevel)

	locations, err := tc.GetTenantLocations(ctx, "tenant1")
	require.NoError(t, err)
	assert.Len(t, locations, 1)

	require.NoError(t, tc.DeleteLocation(ctx, location.ID))
	_, err = tc.GetLocation(ctx, location.ID)
	assert.ErrorIs(t, err, common.ErrLocationNotFound)
	_, err = tc.GetContainer(ctx, container.ID)
	assert.ErrorIs(t, err, common.ErrContainerNotFound)
}

func TestTableCatalogPickup(t *testing.T) {
	ctx := context.Background()
	tc := newTableCatalogForTest(t)

	require.NoError(t, tc.CreateTenant(ctx, &model.Tenant{ID: "tenant1", Name: "Tenant One"}))
	location, err := tc.CreateLocation(ctx, &model.CreateLocation{
		ID:       types.NewUniqueID(),
		TenantID: "tenant1",
		Name:     "Depot North",
	})
	require.NoError(t, err)
	container, err := tc.CreateContainer(ctx, &model.CreateContainer{
		ID:         types.NewUniqueID(),
		LocationID: location.ID,
		Number:     1,
		FillLevel:  90,
		Status:     model.StatusFull,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	container.FillLevel = 0
	container.Status = model.StatusEmpty
	container.UpdatedAt = now
	location.Status = model.StatusEmpty
	location.LastCollection = &now
	location.UpdatedAt = now

	require.NoError(t, tc.RecordPickup(ctx, &model.PickupRecord{
		ID:              types.NewUniqueID(),
		LocationID:      location.ID,
		CollectedAt:     now,
		ContainersCount: 1,
		Notes:           "route 7",
	}, []*model.Container{container}, location))

	got, err := tc.GetLocation(ctx, location.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEmpty, got.Status)
	assert.NotNil(t, got.LastCollection)
}

func TestTableCatalogTokens(t *testing.T) {
	ctx := context.Background()
	tc := newTableCatalogForTest(t)

	require.NoError(t, tc.CreateTenant(ctx, &model.Tenant{ID: "tenant1", Name: "Tenant One"}))
	require.NoError(t, tc.CreateTenant(ctx, &model.Tenant{ID: "tenant2", Name: "Tenant Two"}))

	user1 := &model.User{ID: types.NewUniqueID(), TenantID: "tenant1", Email: "a@tenant1.example"}
	user2 := &model.User{ID: types.NewUniqueID(), TenantID: "tenant2", Email: "b@tenant2.example"}
	require.NoError(t, tc.CreateUser(ctx, user1))
	require.NoError(t, tc.CreateUser(ctx, user2))

	require.NoError(t, tc.UpsertToken(ctx, &model.PushToken{UserID: user1.ID, Token: "tok-1", DeviceInfo: "android"}))
	require.NoError(t, tc.UpsertToken(ctx, &model.PushToken{UserID: user2.ID, Token: "tok-2", DeviceInfo: "ios"}))

	// Tokens are scoped by tenant through their owning user.
	tokens, err := tc.GetTenantTokens(ctx, "tenant1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "tok-1", tokens[0].Token)
	assert.Nil(t, tokens[0].LastSeenAt)

	seen := time.Now().UTC()
	require.NoError(t, tc.TouchToken(ctx, "tok-1", seen))
	tokens, err = tc.GetUserTokens(ctx, user1.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.NotNil(t, tokens[0].LastSeenAt)

	// Re-registration keeps one row per token value.
	require.NoError(t, tc.UpsertToken(ctx, &model.PushToken{UserID: user1.ID, Token: "tok-1", DeviceInfo: "android 14"}))
	tokens, err = tc.GetUserTokens(ctx, user1.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.NotNil(t, tokens[0].LastSeenAt)

	require.NoError(t, tc.DeleteToken(ctx, "tok-1"))
	assert.ErrorIs(t, tc.TouchToken(ctx, "tok-1", seen), common.ErrTokenNotFound)

	users, err := tc.GetTenantUsers(ctx, "tenant1")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
