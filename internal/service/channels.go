package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// Channel actions accepted by POST /api/channels.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
)

// ChannelResult is the outcome of a channel operation. Raw holds the script
// reply verbatim when the script backend served the request.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChannelResult struct {
	Channels []*models.Channel
	Channel  *models.Channel
	Message  string
	Raw      json.RawMessage
}

// ChannelService manages upload channels in the store or through the script.
type ChannelService struct {
	backend   string
	repo      repository.ChannelRepository
	runner    ScriptRunner
	validator *validation.Validator
	log       *zap.Logger
}

// NewChannelService creates a ChannelService. repo may be nil for the script backend.
func NewChannelService(backend string, repo repository.ChannelRepository, runner ScriptRunner, validator *validation.Validator) *ChannelService {
	return &ChannelService{
		backend:   backend,
		repo:      repo,
		runner:    runner,
		validator: validator,
		log:       logger.Named("channels"),
	}
}

// List returns every configured channel.
func (s *ChannelService) List(ctx context.Context) (*ChannelResult, error) {
	if s.useScript() {
		raw, err := s.runner.Run(ctx, "channels", "list")
		if err != nil {
			return nil, err
		}
		return &ChannelResult{Raw: raw}, nil
	}

	channels, err := s.repo.List(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to list channels", Cause: err}
	}
	return &ChannelResult{Channels: channels}, nil
}

// Apply dispatches a create, update, delete or toggle action.
func (s *ChannelService) Apply(ctx context.Context, req *models.ChannelActionRequest) (*ChannelResult, error) {
	switch req.Action {
	case ActionCreate:
		return s.create(ctx, req.ChannelID, req.ChannelData)
	case ActionUpdate:
		if err := s.requireID(req.ChannelID); err != nil {
			return nil, err
		}
		return s.update(ctx, req.ChannelID, req.ChannelData)
	case ActionDelete:
		if err := s.requireID(req.ChannelID); err != nil {
			return nil, err
		}
		return s.delete(ctx, req.ChannelID)
	case ActionToggle:
		if err := s.requireID(req.ChannelID); err != nil {
			return nil, err
		}
		return s.toggle(ctx, req.ChannelID)
	default:
		return nil, &ValidationError{Message: "Invalid action"}
	}
}

func (s *ChannelService) create(ctx context.Context, channelID string, data map[string]interface{}) (*ChannelResult, error) {
	channel, err := s.validator.ChannelFromData(channelID, data)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if s.useScript() {
		channel.CreatedAt = time.Now().UTC()
		channel.UpdatedAt = channel.CreatedAt
		return s.relay(ctx, "create", mustJSON(channel))
	}

	if err := s.repo.Create(ctx, channel); err != nil {
		return nil, storeError(err, channel.ChannelID, "create channel")
	}

	s.log.Info("Channel created",
		zap.String("channelId", channel.ChannelID),
		zap.String("driveFolderId", channel.DriveFolderID),
	)

	return &ChannelResult{Channel: channel, Message: fmt.Sprintf("Channel %s created", channel.ChannelID)}, nil
}

func (s *ChannelService) update(ctx context.Context, channelID string, data map[string]interface{}) (*ChannelResult, error) {
	if id, ok := data["channel_id"].(string); ok && id != "" && id != channelID {
		return nil, &ValidationError{Message: "channel_id cannot be changed"}
	}

	patch, err := s.validator.PatchFromData(data)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if patch.IsEmpty() {
		return nil, &ValidationError{Message: "channelData has no updatable fields"}
	}

	if s.useScript() {
		return s.relay(ctx, "update", channelID, mustJSON(patch))
	}

	channel, err := s.repo.Update(ctx, channelID, patch)
	if err != nil {
		return nil, storeError(err, channelID, "update channel")
	}

	s.log.Info("Channel updated", zap.String("channelId", channelID))

	return &ChannelResult{Channel: channel, Message: fmt.Sprintf("Channel %s updated", channelID)}, nil
}

func (s *ChannelService) delete(ctx context.Context, channelID string) (*ChannelResult, error) {
	if s.useScript() {
		return s.relay(ctx, "delete", channelID)
	}

	if err := s.repo.Delete(ctx, channelID); err != nil {
		return nil, storeError(err, channelID, "delete channel")
	}

	s.log.Info("Channel deleted", zap.String("channelId", channelID))

	return &ChannelResult{Message: fmt.Sprintf("Channel %s deleted", channelID)}, nil
}

// toggle flips the enabled flag of one channel and writes nothing else.
func (s *ChannelService) toggle(ctx context.Context, channelID string) (*ChannelResult, error) {
	if s.useScript() {
		return s.relay(ctx, "toggle", channelID)
	}

	channel, err := s.repo.Get(ctx, channelID)
	if err != nil {
		return nil, storeError(err, channelID, "load channel")
	}

	enabled := !channel.Enabled
	if err := s.repo.SetEnabled(ctx, channelID, enabled); err != nil {
		return nil, storeError(err, channelID, "toggle channel")
	}
	channel.Enabled = enabled

	s.log.Info("Channel toggled",
		zap.String("channelId", channelID),
		zap.Bool("enabled", enabled),
	)

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return &ChannelResult{Channel: channel, Message: fmt.Sprintf("Channel %s %s", channelID, state)}, nil
}

func (s *ChannelService) relay(ctx context.Context, args ...string) (*ChannelResult, error) {
	raw, err := s.runner.Run(ctx, "channels", args...)
	if err != nil {
		return nil, err
	}
	return &ChannelResult{Raw: raw}, nil
}

func (s *ChannelService) requireID(channelID string) error {
	if !s.validator.IsValidChannelID(channelID) {
		return &ValidationError{Message: fmt.Sprintf("invalid channelId: %q", channelID)}
	}
	return nil
}

func (s *ChannelService) useScript() bool {
	return s.backend == config.BackendScript
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return string(b)
}
