package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yt-automation/shorts-dashboard-go/internal/db"
	"github.com/yt-automation/shorts-dashboard-go/internal/metrics"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Upload sources, used as the metrics label and the event source.
const (
	SourceDashboard    = "dashboard"
	SourceCron         = "cron"
	SourceOrchestrator = "orchestrator"
)

const shortsURLPrefix = "https://www.youtube.com/shorts/"

// UploadService runs upload verbs and records what they produced.
type UploadService struct {
	runner    ScriptRunner
	channels  repository.ChannelRepository
	history   repository.HistoryRepository
	publisher EventPublisher
	validator *validation.Validator
	group     singleflight.Group
	log       *zap.Logger
}

// NewUploadService creates an UploadService. store and publisher are optional;
// without them uploads still run but nothing is recorded or published.
func NewUploadService(runner ScriptRunner, store *repository.Store, publisher EventPublisher, validator *validation.Validator) *UploadService {
	s := &UploadService{
		runner:    runner,
		publisher: publisher,
		validator: validator,
		log:       logger.Named("upload"),
	}
	if store != nil {
		s.channels = store.Channels
		s.history = store.History
	}
	return s
}

// Upload runs one upload cycle for req. Identical concurrent requests share
// a single script run and a single set of history records.
func (s *UploadService) Upload(ctx context.Context, req models.UploadRequest, source, runID string) (*models.UploadResult, error) {
	verb, args, err := s.command(req)
	if err != nil {
		return nil, err
	}

	// The script keeps uploading when the caller goes away; the runner's own
	// timeout still applies.
	runCtx := context.WithoutCancel(ctx)
	key := strings.Join(append([]string{verb}, args...), "\x00")

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		var result models.UploadResult
		if err := s.runner.RunInto(runCtx, &result, verb, args...); err != nil {
			return nil, err
		}
		s.record(runCtx, req, &result, source, runID)
		return &result, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.log.Info("Upload request joined an in-flight run",
			zap.String("verb", verb),
			zap.String("source", source),
		)
	}

	return v.(*models.UploadResult), nil
}

func (s *UploadService) command(req models.UploadRequest) (string, []string, error) {
	switch {
	case req.UploadAll:
		return "upload-all", nil, nil
	case req.ChannelID != "":
		if !s.validator.IsValidChannelID(req.ChannelID) {
			return "", nil, &ValidationError{Message: fmt.Sprintf("invalid channelId: %q", req.ChannelID)}
		}
		return "upload-channel", []string{req.ChannelID}, nil
	case req.VideoID != "":
		if !s.validator.IsValidFileID(req.VideoID) {
			return "", nil, &ValidationError{Message: fmt.Sprintf("invalid videoId: %q", req.VideoID)}
		}
		return "upload", []string{req.VideoID}, nil
	default:
		return "upload", nil, nil
	}
}

// record writes history, bumps channel counters and publishes one event per
// completed upload. Failures are logged; the videos are already on YouTube.
func (s *UploadService) record(ctx context.Context, req models.UploadRequest, result *models.UploadResult, source, runID string) {
	for _, leaf := range result.Completed() {
		entry := s.historyEntry(ctx, req, leaf)

		s.log.Info("Upload completed",
			zap.String("youtubeId", entry.YouTubeID),
			zap.String("videoId", entry.VideoID),
			zap.String("channelId", entry.ChannelID),
			zap.String("source", source),
		)

		if s.history != nil {
			if err := s.history.Append(ctx, entry); err != nil {
				s.log.Error("Failed to record upload history",
					zap.Error(err),
					zap.String("youtubeId", entry.YouTubeID),
				)
			} else {
				metrics.UploadsRecorded.WithLabelValues(source).Inc()
			}
		}

		if s.channels != nil && entry.ChannelID != "" {
			if err := s.channels.IncrementUploadCount(ctx, entry.ChannelID); err != nil && !errors.Is(err, db.ErrNotFound) {
				s.log.Error("Failed to increment upload count",
					zap.Error(err),
					zap.String("channelId", entry.ChannelID),
				)
			}
		}

		if s.publisher != nil {
			event := &models.UploadEvent{
				ID:          entry.ID,
				RunID:       runID,
				Source:      source,
				VideoID:     entry.VideoID,
				YouTubeID:   entry.YouTubeID,
				YouTubeURL:  entry.YouTubeURL,
				ChannelID:   entry.ChannelID,
				ChannelName: entry.ChannelName,
				UploadedAt:  entry.UploadedAt,
			}
			if err := s.publisher.PublishUpload(ctx, event); err != nil {
				s.log.Error("Failed to publish upload event",
					zap.Error(err),
					zap.String("eventId", event.ID.String()),
				)
			}
		}
	}
}

func (s *UploadService) historyEntry(ctx context.Context, req models.UploadRequest, leaf models.UploadResult) *models.UploadHistory {
	sourceID := leaf.DriveFileID
	if sourceID == "" && !req.UploadAll && req.ChannelID == "" {
		sourceID = req.VideoID
	}
	if sourceID == "" {
		sourceID = leaf.FileName
	}

	channelID := leaf.ChannelID
	if channelID == "" && !req.UploadAll {
		channelID = req.ChannelID
	}

	entry := &models.UploadHistory{
		ID:          uuid.New(),
		VideoID:     sourceID,
		YouTubeID:   leaf.VideoID,
		Title:       firstNonEmpty(leaf.Title, leaf.FileName),
		ChannelID:   channelID,
		ChannelName: leaf.ChannelName,
		UploadedAt:  time.Now().UTC(),
		YouTubeURL:  firstNonEmpty(leaf.YouTubeURL, shortsURLPrefix+leaf.VideoID),
	}

	if entry.ChannelName == "" && entry.ChannelID != "" && s.channels != nil {
		if channel, err := s.channels.Get(ctx, entry.ChannelID); err == nil {
			entry.ChannelName = channel.ChannelName
		}
	}

	return entry
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
