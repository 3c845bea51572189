package model

import (
	"time"

	"github.com/ecotracker/fillstate/internal/types"
)

type Container struct {
	ID         types.UniqueID `json:"id"`
	LocationID types.UniqueID `json:"location_id"`
	Number     int            `json:"number"`
	FillLevel  int            `json:"fill_level"`
	Status     Status         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type CreateContainer struct {
	ID         types.UniqueID
	LocationID types.UniqueID
	Number     int
	FillLevel  int
	Status     Status
}
