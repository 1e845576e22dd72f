package service

import (
	"errors"
	"fmt"

	"github.com/yt-automation/shorts-dashboard-go/internal/db"
)

// ValidationError represents a request that was rejected before any work was done.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a missing channel or file.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ProcessingError represents a store or publish failure.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// storeError maps repository errors for a channel onto service errors.
func storeError(err error, channelID, op string) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return &NotFoundError{Message: fmt.Sprintf("channel not found: %s", channelID)}
	case errors.Is(err, db.ErrDuplicateKey):
		return &ValidationError{Message: fmt.Sprintf("channel already exists: %s", channelID)}
	default:
		return &ProcessingError{Message: fmt.Sprintf("failed to %s", op), Cause: err}
	}
}
