package dbmodel

import (
	"time"
)

type Tenant struct {
	ID        string    `gorm:"id;primaryKey"`
	Name      string    `gorm:"name"`
	CreatedAt time.Time `gorm:"created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"updated_at;default:CURRENT_TIMESTAMP"`
}

func (v Tenant) TableName() string {
	return "tenants"
}

//go:generate mockery --name=ITenantDb
type ITenantDb interface {
	GetAllTenants() ([]*Tenant, error)
	GetTenants(tenantID string) ([]*Tenant, error)
	Insert(in *Tenant) error
	DeleteAll() error
}

type User struct {
	ID        string    `gorm:"id;primaryKey"`
	TenantID  string    `gorm:"tenant_id;index"`
	Email     string    `gorm:"email;unique"`
	CreatedAt time.Time `gorm:"created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"updated_at;default:CURRENT_TIMESTAMP"`
}

func (v User) TableName() string {
	return "users"
}

//go:generate mockery --name=IUserDb
type IUserDb interface {
	GetByTenant(tenantID string) ([]*User, error)
	GetByID(userID string) (*User, error)
	Insert(in *User) error
	DeleteAll() error
}
