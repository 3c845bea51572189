package common

// Component is implemented by the long running parts of the system
// that need an explicit lifecycle.
type Component interface {
	Start() error
	Stop() error
}
