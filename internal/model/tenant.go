package model

import (
	"time"

	"github.com/ecotracker/fillstate/internal/types"
)

type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID       types.UniqueID `json:"id"`
	TenantID string         `json:"tenant_id"`
	Email    string         `json:"email"`
}

// PushToken is an addressable asynchronous push destination owned by a
// user. LastSeenAt is advanced by the owner's own heartbeat and is the
// input to recipient dedup.
type PushToken struct {
	ID         types.UniqueID `json:"id"`
	UserID     types.UniqueID `json:"user_id"`
	Token      string         `json:"token"`
	DeviceInfo string         `json:"device_info,omitempty"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
