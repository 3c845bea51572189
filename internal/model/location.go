package model

import (
	"time"

	"github.com/ecotracker/fillstate/internal/types"
)

type Location struct {
	ID             types.UniqueID `json:"id"`
	TenantID       string         `json:"tenant_id"`
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	Lat            float64        `json:"lat"`
	Lng            float64        `json:"lng"`
	Status         Status         `json:"status"`
	LastFullAt     *time.Time     `json:"last_full_at,omitempty"`
	LastCollection *time.Time     `json:"last_collection,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type CreateLocation struct {
	ID       types.UniqueID
	TenantID string
	Name     string
	Address  string
	Lat      float64
	Lng      float64
}

// LocationSnapshot is the read-only view of a location carried inside
// update outcomes and broadcast events.
type LocationSnapshot struct {
	ID         types.UniqueID `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       string         `json:"name"`
	Status     Status         `json:"status"`
	LastFullAt *time.Time     `json:"last_full_at,omitempty"`
}

func (l *Location) Snapshot() LocationSnapshot {
	return LocationSnapshot{
		ID:         l.ID,
		TenantID:   l.TenantID,
		Name:       l.Name,
		Status:     l.Status,
		LastFullAt: l.LastFullAt,
	}
}

// PickupRecord is a completed waste collection at a location. Recording
// one empties every container of the location.
type PickupRecord struct {
	ID              types.UniqueID `json:"id"`
	LocationID      types.UniqueID `json:"location_id"`
	CollectedAt     time.Time      `json:"collected_at"`
	ContainersCount int            `json:"containers_count"`
	Notes           string         `json:"notes,omitempty"`
	CollectedBy     string         `json:"collected_by,omitempty"`
}
