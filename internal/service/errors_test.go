package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yt-automation/shorts-dashboard-go/internal/db"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Message: "test validation error"}

	if err.Error() != "test validation error" {
		t.Errorf("ValidationError.Error() = %s, want 'test validation error'", err.Error())
	}
}

func TestProcessingError(t *testing.T) {
	tests := []struct {
		name string
		err  *ProcessingError
		want string
	}{
		{
			name: "without cause",
			err:  &ProcessingError{Message: "test error", Cause: nil},
			want: "test error: <nil>",
		},
		{
			name: "with cause",
			err:  &ProcessingError{Message: "test error", Cause: &ValidationError{Message: "cause"}},
			want: "test error: cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ProcessingError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	notFound := storeError(fmt.Errorf("get channel: %w", db.ErrNotFound), "travel", "load channel")
	var nf *NotFoundError
	assert.ErrorAs(t, notFound, &nf)
	assert.EqualError(t, notFound, "channel not found: travel")

	dup := storeError(db.ErrDuplicateKey, "travel", "create channel")
	var ve *ValidationError
	assert.ErrorAs(t, dup, &ve)
	assert.EqualError(t, dup, "channel already exists: travel")

	boom := errors.New("connection reset")
	other := storeError(boom, "travel", "create channel")
	var pe *ProcessingError
	assert.ErrorAs(t, other, &pe)
	assert.ErrorIs(t, other, boom)
	assert.Equal(t, "failed to create channel", pe.Message)
}
