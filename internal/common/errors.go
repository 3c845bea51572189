package common

import (
	"errors"
)

var (
	// Tenant errors
	ErrTenantNotFound                  = errors.New("tenant not found")
	ErrTenantUniqueConstraintViolation = errors.New("tenant unique constraint violation")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Location errors
	ErrLocationNotFound                  = errors.New("location not found")
	ErrLocationUniqueConstraintViolation = errors.New("location unique constraint violation")

	// Container errors
	ErrContainerNotFound                  = errors.New("container not found")
	ErrContainerNotInLocation             = errors.New("container does not belong to the location")
	ErrContainerUniqueConstraintViolation = errors.New("container unique constraint violation")

	// Fill level errors
	ErrFillLevelOutOfRange = errors.New("fill level must be between 0 and 100")
	ErrEmptyBatch          = errors.New("batch contains no entries")

	// Push token errors
	ErrTokenNotFound = errors.New("push token not found")

	// Persistence errors
	ErrPersistenceConflict      = errors.New("concurrent write conflict")
	ErrConflictRetriesExhausted = errors.New("update failed after retrying on write conflicts")
)
