package dao

import (
	"testing"
	"time"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbcore"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPushTokenDb_TenantScope(t *testing.T) {
	db := dbcore.ConfigDatabaseForTesting()
	userDb := &userDb{db: db}
	tokenDb := &pushTokenDb{db: db}

	userA := types.NewUniqueID().String()
	userB := types.NewUniqueID().String()
	userOther := types.NewUniqueID().String()
	assert.NoError(t, userDb.Insert(&dbmodel.User{ID: userA, TenantID: "tenant-1", Email: "a@example.com"}))
	assert.NoError(t, userDb.Insert(&dbmodel.User{ID: userB, TenantID: "tenant-1", Email: "b@example.com"}))
	assert.NoError(t, userDb.Insert(&dbmodel.User{ID: userOther, TenantID: "tenant-2", Email: "c@example.com"}))

	assert.NoError(t, tokenDb.Insert(&dbmodel.PushToken{ID: types.NewUniqueID().String(), UserID: userA, Token: "tok-a"}))
	assert.NoError(t, tokenDb.Insert(&dbmodel.PushToken{ID: types.NewUniqueID().String(), UserID: userB, Token: "tok-b"}))
	assert.NoError(t, tokenDb.Insert(&dbmodel.PushToken{ID: types.NewUniqueID().String(), UserID: userOther, Token: "tok-c"}))

	tokens, err := tokenDb.GetByTenant("tenant-1")
	assert.NoError(t, err)
	assert.Len(t, tokens, 2)
	values := []string{tokens[0].Token, tokens[1].Token}
	assert.ElementsMatch(t, []string{"tok-a", "tok-b"}, values)

	tokens, err = tokenDb.GetByTenant("tenant-2")
	assert.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.Equal(t, "tok-c", tokens[0].Token)
}

func TestPushTokenDb_Heartbeat(t *testing.T) {
	db := dbcore.ConfigDatabaseForTesting()
	tokenDb := &pushTokenDb{db: db}

	userID := types.NewUniqueID().String()
	assert.NoError(t, tokenDb.Insert(&dbmodel.PushToken{
		ID:     types.NewUniqueID().String(),
		UserID: userID,
		Token:  "tok-1",
	}))

	token, err := tokenDb.GetByToken("tok-1")
	assert.NoError(t, err)
	assert.Nil(t, token.LastSeenAt)

	seenAt := time.Now().UTC()
	token.LastSeenAt = &seenAt
	token.UpdatedAt = seenAt
	assert.NoError(t, tokenDb.Update(token))

	token, err = tokenDb.GetByToken("tok-1")
	assert.NoError(t, err)
	assert.NotNil(t, token.LastSeenAt)
	assert.WithinDuration(t, seenAt, *token.LastSeenAt, time.Second)

	_, err = tokenDb.GetByToken("tok-missing")
	assert.ErrorIs(t, err, common.ErrTokenNotFound)

	assert.NoError(t, tokenDb.DeleteByToken("tok-1"))
	assert.ErrorIs(t, tokenDb.DeleteByToken("tok-1"), common.ErrTokenNotFound)
}
