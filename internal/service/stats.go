package service

import (
	"context"
	"encoding/json"

	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
)

// DriveStats are the folder counts reported by the script.
type DriveStats struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Pending  int `json:"pending"`
}

// StatsResult combines the script counts with store counts when a store is configured.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StatsResult struct {
	Stats            DriveStats       `json:"stats"`
	Channels         *int64           `json:"channels,omitempty"`
	EnabledChannels  *int64           `json:"enabled_channels,omitempty"`
	HistoryTotal     *int64           `json:"history_total,omitempty"`
	UploadsByChannel map[string]int64 `json:"uploads_by_channel,omitempty"`
}

// StatsService reports dashboard counters.
type StatsService struct {
	runner ScriptRunner
	store  *repository.Store
}

// NewStatsService creates a StatsService. store may be nil.
func NewStatsService(runner ScriptRunner, store *repository.Store) *StatsService {
	return &StatsService{runner: runner, store: store}
}

// Stats runs the stats verb, coalescing concurrent dashboard polls.
func (s *StatsService) Stats(ctx context.Context) (*StatsResult, error) {
	raw, _, err := s.runner.RunShared(ctx, "stats")
	if err != nil {
		return nil, err
	}

	result := &StatsResult{}
	if err := json.Unmarshal(raw, &result.Stats); err != nil {
		return nil, &automation.ParseError{Verb: "stats", Output: string(raw), Err: err}
	}

	if s.store == nil {
		return result, nil
	}

	total, enabled, err := s.store.Channels.Count(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to count channels", Cause: err}
	}
	uploads, err := s.store.History.Count(ctx, models.HistoryFilter{})
	if err != nil {
		return nil, &ProcessingError{Message: "failed to count history", Cause: err}
	}
	byChannel, err := s.store.History.CountByChannel(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to count history", Cause: err}
	}

	result.Channels = &total
	result.EnabledChannels = &enabled
	result.HistoryTotal = &uploads
	result.UploadsByChannel = byChannel

	return result, nil
}
