package dbmodel

import "context"

//go:generate mockery --name=IMetaDomain
type IMetaDomain interface {
	TenantDb(ctx context.Context) ITenantDb
	UserDb(ctx context.Context) IUserDb
	LocationDb(ctx context.Context) ILocationDb
	ContainerDb(ctx context.Context) IContainerDb
	PushTokenDb(ctx context.Context) IPushTokenDb
	PickupDb(ctx context.Context) IPickupDb
}

//go:generate mockery --name=ITransaction
type ITransaction interface {
	Transaction(ctx context.Context, fn func(txCtx context.Context) error) error
}
