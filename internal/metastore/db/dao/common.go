package dao

import (
	"context"

	"github.com/ecotracker/fillstate/internal/metastore/db/dbcore"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
)

type metaDomain struct{}

func NewMetaDomain() *metaDomain {
	return &metaDomain{}
}

func (*metaDomain) TenantDb(ctx context.Context) dbmodel.ITenantDb {
	return &tenantDb{dbcore.GetDB(ctx)}
}

func (*metaDomain) UserDb(ctx context.Context) dbmodel.IUserDb {
	return &userDb{dbcore.GetDB(ctx)}
}

func (*metaDomain) LocationDb(ctx context.Context) dbmodel.ILocationDb {
	return &locationDb{dbcore.GetDB(ctx)}
}

func (*metaDomain) ContainerDb(ctx context.Context) dbmodel.IContainerDb {
	return &containerDb{dbcore.GetDB(ctx)}
}

func (*metaDomain) PushTokenDb(ctx context.Context) dbmodel.IPushTokenDb {
	return &pushTokenDb{dbcore.GetDB(ctx)}
}

func (*metaDomain) PickupDb(ctx context.Context) dbmodel.IPickupDb {
	return &pickupDb{dbcore.GetDB(ctx)}
}
