package model

import (
	"time"

	"github.com/ecotracker/fillstate/internal/types"
)

const (
	EventTypeContainerUpdated = "container_updated"
	EventTypeLocationUpdated  = "location_updated"
)

// UpdateEvent is the payload published on the live channel and the
// firehose. All events are partitioned by TenantID.
type UpdateEvent struct {
	Type       string           `json:"type"`
	TenantID   string           `json:"tenant_id"`
	Container  *Container       `json:"container,omitempty"`
	Containers []*Container     `json:"containers,omitempty"`
	Location   LocationSnapshot `json:"location"`
	Timestamp  time.Time        `json:"timestamp"`
}

// UpdateOutcome is what ApplyFillLevel reports back: the committed
// container, the committed location view and whether this update moved
// the location into full.
type UpdateOutcome struct {
	Container          *Container
	Location           LocationSnapshot
	LocationBecameFull bool
	TransitionAt       time.Time
}

type BatchEntry struct {
	ContainerID types.UniqueID
	FillLevel   int
}

type BatchEntryError struct {
	ContainerID types.UniqueID
	Err         error
}

// BatchResult reports a multi-container update of one location. The
// location status is recomputed once over the final container states,
// so a batch fires at most one full transition.
type BatchResult struct {
	Location           LocationSnapshot
	Updated            []*Container
	Errors             []BatchEntryError
	LocationBecameFull bool
	TransitionAt       time.Time
}
