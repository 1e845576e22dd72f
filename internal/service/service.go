// Package service implements the dashboard operations on top of the
// automation script and the store.
package service

import (
	"context"
	"encoding/json"

	"github.com/yt-automation/shorts-dashboard-go/internal/models"
)

// ScriptRunner runs automation script verbs. *automation.Runner implements it.
type ScriptRunner interface {
	Run(ctx context.Context, verb string, args ...string) (json.RawMessage, error)
	RunInto(ctx context.Context, out interface{}, verb string, args ...string) error
	RunShared(ctx context.Context, verb string, args ...string) (json.RawMessage, bool, error)
}

// EventPublisher publishes completed uploads. *MessagePublisher implements it.
type EventPublisher interface {
	PublishUpload(ctx context.Context, event *models.UploadEvent) error
	IsHealthy() bool
}
