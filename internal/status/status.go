package status

import (
	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/model"
)

// A container reads full well before the physical brim so that pickups
// can be scheduled ahead of overflow.
const fullThreshold = 70

// ForFillLevel derives a container status from its fill level.
// Levels outside [0,100] are rejected.
func ForFillLevel(fillLevel int) (model.Status, error) {
	if fillLevel < 0 || fillLevel > 100 {
		return "", common.ErrFillLevelOutOfRange
	}
	switch {
	case fillLevel == 0:
		return model.StatusEmpty, nil
	case fillLevel < fullThreshold:
		return model.StatusPartial, nil
	default:
		return model.StatusFull, nil
	}
}

// ForContainers derives a location status from the statuses of its
// containers. A location with no containers is empty. A nonempty mix of
// only empty and full containers is partial.
func ForContainers(statuses []model.Status) model.Status {
	if len(statuses) == 0 {
		return model.StatusEmpty
	}
	allFull := true
	allEmpty := true
	for _, s := range statuses {
		if s != model.StatusFull {
			allFull = false
		}
		if s != model.StatusEmpty {
			allEmpty = false
		}
	}
	switch {
	case allFull:
		return model.StatusFull
	case allEmpty:
		return model.StatusEmpty
	default:
		return model.StatusPartial
	}
}
