package dbmodel

import (
	"time"
)

type PushToken struct {
	ID         string     `gorm:"id;primaryKey"`
	UserID     string     `gorm:"user_id;index"`
	Token      string     `gorm:"token;unique"`
	DeviceInfo string     `gorm:"device_info"`
	LastSeenAt *time.Time `gorm:"last_seen_at"`
	CreatedAt  time.Time  `gorm:"created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time  `gorm:"updated_at;default:CURRENT_TIMESTAMP"`
}

func (v PushToken) TableName() string {
	return "push_tokens"
}

//go:generate mockery --name=IPushTokenDb
type IPushTokenDb interface {
	GetByUser(userID string) ([]*PushToken, error)
	GetByTenant(tenantID string) ([]*PushToken, error)
	GetByToken(token string) (*PushToken, error)
	Insert(in *PushToken) error
	Update(in *PushToken) error
	DeleteByToken(token string) error
	DeleteAll() error
}
