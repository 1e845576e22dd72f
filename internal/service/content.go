package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
)

const maxVideoLimit = 100

// ContentService relays the read-only video and metadata verbs.
type ContentService struct {
	runner    ScriptRunner
	validator *validation.Validator
}

// NewContentService creates a ContentService.
func NewContentService(runner ScriptRunner, validator *validation.Validator) *ContentService {
	return &ContentService{runner: runner, validator: validator}
}

// Videos lists up to limit files of the Drive folder.
func (s *ContentService) Videos(ctx context.Context, limit int) (json.RawMessage, error) {
	if limit <= 0 || limit > maxVideoLimit {
		return nil, &ValidationError{Message: fmt.Sprintf("limit must be between 1 and %d", maxVideoLimit)}
	}
	raw, _, err := s.runner.RunShared(ctx, "videos", strconv.Itoa(limit))
	return raw, err
}

// Trending returns trending metadata suggestions.
func (s *ContentService) Trending(ctx context.Context) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := s.runner.RunInto(ctx, &data, "metadata", "trending"); err != nil {
		return nil, err
	}
	return data, nil
}

// Generate returns metadata generated for a channel and optional file name.
func (s *ContentService) Generate(ctx context.Context, req *models.MetadataRequest) (json.RawMessage, error) {
	if !s.validator.IsValidChannelID(req.ChannelID) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid channelId: %q", req.ChannelID)}
	}

	args := []string{"generate", req.ChannelID}
	if req.VideoFilename != "" {
		args = append(args, req.VideoFilename)
	}
	return s.runner.Run(ctx, "metadata", args...)
}
