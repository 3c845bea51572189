package dbmodel

import (
	"time"
)

type Location struct {
	ID             string     `gorm:"id;primaryKey"`
	TenantID       string     `gorm:"tenant_id;index"`
	Name           string     `gorm:"name"`
	Address        string     `gorm:"address"`
	Lat            float64    `gorm:"lat"`
	Lng            float64    `gorm:"lng"`
	Status         string     `gorm:"status;default:empty"`
	LastFullAt     *time.Time `gorm:"last_full_at"`
	LastCollection *time.Time `gorm:"last_collection"`
	CreatedAt      time.Time  `gorm:"created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time  `gorm:"updated_at;default:CURRENT_TIMESTAMP"`
}

func (v Location) TableName() string {
	return "locations"
}

//go:generate mockery --name=ILocationDb
type ILocationDb interface {
	GetByID(locationID string) (*Location, error)
	GetByTenant(tenantID string) ([]*Location, error)
	Insert(in *Location) error
	Update(in *Location) error
	DeleteByID(locationID string) error
	DeleteAll() error
}

type Container struct {
	ID         string    `gorm:"id;primaryKey"`
	LocationID string    `gorm:"location_id;index"`
	Number     int       `gorm:"number"`
	FillLevel  int       `gorm:"fill_level;default:0"`
	Status     string    `gorm:"status;default:empty"`
	CreatedAt  time.Time `gorm:"created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"updated_at;default:CURRENT_TIMESTAMP"`
}

func (v Container) TableName() string {
	return "containers"
}

//go:generate mockery --name=IContainerDb
type IContainerDb interface {
	GetByID(containerID string) (*Container, error)
	GetByLocation(locationID string) ([]*Container, error)
	Insert(in *Container) error
	Update(in *Container) error
	DeleteByLocation(locationID string) error
	DeleteAll() error
}

type PickupRecord struct {
	ID              string    `gorm:"id;primaryKey"`
	LocationID      string    `gorm:"location_id;index"`
	CollectedAt     time.Time `gorm:"collected_at"`
	ContainersCount int       `gorm:"containers_count"`
	Notes           string    `gorm:"notes"`
	CollectedBy     string    `gorm:"collected_by"`
}

func (v PickupRecord) TableName() string {
	return "pickup_records"
}

//go:generate mockery --name=IPickupDb
type IPickupDb interface {
	GetByLocation(locationID string) ([]*PickupRecord, error)
	Insert(in *PickupRecord) error
	DeleteAll() error
}
