package model

// Status is the derived fill state of a container or a location.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusPartial Status = "partial"
	StatusFull    Status = "full"
)

func (s Status) Valid() bool {
	switch s {
	case StatusEmpty, StatusPartial, StatusFull:
		return true
	}
	return false
}
