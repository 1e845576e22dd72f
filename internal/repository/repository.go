// Package repository provides channel, config and upload history storage
// over MongoDB or PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/db"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
)

// Collection and table names.
const (
	ChannelsCollection = "channels"
	ConfigCollection   = "config"
	HistoryCollection  = "upload_history"
)

// ChannelRepository defines operations for managing channels.
type ChannelRepository interface {
	// List returns every channel ordered by creation time.
	List(ctx context.Context) ([]*models.Channel, error)

	// Get retrieves a single channel by its channel_id.
	Get(ctx context.Context, channelID string) (*models.Channel, error)

	// Create inserts a channel. A duplicate channel_id yields db.ErrDuplicateKey.
	Create(ctx context.Context, channel *models.Channel) error

	// Update applies a patch and returns the updated channel.
	Update(ctx context.Context, channelID string, patch models.ChannelPatch) (*models.Channel, error)

	// Delete removes a channel by channel_id.
	Delete(ctx context.Context, channelID string) error

	// SetEnabled writes only the enabled flag of the targeted channel.
	SetEnabled(ctx context.Context, channelID string, enabled bool) error

	// IncrementUploadCount bumps the upload counter by one.
	IncrementUploadCount(ctx context.Context, channelID string) error

	// Count returns the number of channels and how many of them are enabled.
	Count(ctx context.Context) (total int64, enabled int64, err error)
}

// ConfigRepository stores the singleton upload settings.
type ConfigRepository interface {
	// Get returns the settings, or zero values when none were ever saved.
	Get(ctx context.Context) (*models.AppConfig, error)

	// Upsert writes the non-nil fields of patch and returns the result.
	Upsert(ctx context.Context, patch models.ConfigPatch) (*models.AppConfig, error)
}

// HistoryRepository is the append-only upload log.
type HistoryRepository interface {
	Append(ctx context.Context, record *models.UploadHistory) error
	List(ctx context.Context, filter models.HistoryFilter) ([]*models.UploadHistory, error)
	Count(ctx context.Context, filter models.HistoryFilter) (int64, error)
	CountByChannel(ctx context.Context) (map[string]int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Channels ChannelRepository
	Config   ConfigRepository
	History  HistoryRepository

	driver string
	ping   func(context.Context) error
	close  func(context.Context) error
}

// NewStore assembles a Store from existing repositories. ping may be nil.
func NewStore(driver string, channels ChannelRepository, cfg ConfigRepository, history HistoryRepository, ping func(context.Context) error) *Store {
	return &Store{
		Channels: channels,
		Config:   cfg,
		History:  history,
		driver:   driver,
		ping:     ping,
	}
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the backend connection health.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects the backend selected by cfg.Driver. It returns a nil Store for DriverNone.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case config.DriverMongo:
		client, err := db.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		store := NewMongoStore(client, cfg.Mongo.Name)
		if err := EnsureMongoIndexes(ctx, client.Database(cfg.Mongo.Name)); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
