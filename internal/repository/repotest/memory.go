// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yt-automation/shorts-dashboard-go/internal/db"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
)

// Store is an in-memory repository.Store with hooks for failure injection.
type Store struct {
	*repository.Store

	ChannelRepo *ChannelRepo
	ConfigRepo  *ConfigRepo
	HistoryRepo *HistoryRepo

	// PingErr is returned by Ping.
	PingErr error
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	s := &Store{
		ChannelRepo: NewChannelRepo(),
		ConfigRepo:  &ConfigRepo{},
		HistoryRepo: &HistoryRepo{},
	}
	s.Store = repository.NewStore("memory", s.ChannelRepo, s.ConfigRepo, s.HistoryRepo,
		func(context.Context) error { return s.PingErr })
	return s
}

// ChannelRepo keeps channels in a map.
type ChannelRepo struct {
	mu       sync.Mutex
	channels map[string]*models.Channel

	// Err, when set, is returned by every call.
	Err error
	// Writes counts SetEnabled calls per channel id.
	Writes map[string]int
}

// NewChannelRepo returns an empty ChannelRepo.
func NewChannelRepo(channels ...*models.Channel) *ChannelRepo {
	r := &ChannelRepo{
		channels: make(map[string]*models.Channel),
		Writes:   make(map[string]int),
	}
	for _, c := range channels {
		cp := *c
		r.channels[c.ChannelID] = &cp
	}
	return r
}

// Put stores a copy of c.
func (r *ChannelRepo) Put(c *models.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.channels[c.ChannelID] = &cp
}

func (r *ChannelRepo) List(ctx context.Context) ([]*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	out := make([]*models.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ChannelRepo) Get(ctx context.Context, channelID string) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	c, ok := r.channels[channelID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	if _, ok := r.channels[channel.ChannelID]; ok {
		return db.ErrDuplicateKey
	}
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now
	cp := *channel
	r.channels[channel.ChannelID] = &cp
	return nil
}

func (r *ChannelRepo) Update(ctx context.Context, channelID string, patch models.ChannelPatch) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	c, ok := r.channels[channelID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if patch.ChannelName != nil {
		c.ChannelName = *patch.ChannelName
	}
	if patch.DriveFolderID != nil {
		c.DriveFolderID = *patch.DriveFolderID
	}
	if patch.DriveFolderURL != nil {
		c.DriveFolderURL = *patch.DriveFolderURL
	}
	if patch.Enabled != nil {
		c.Enabled = *patch.Enabled
	}
	if patch.TitleTemplate != nil {
		c.TitleTemplate = *patch.TitleTemplate
	}
	if patch.DescriptionTemplate != nil {
		c.DescriptionTemplate = *patch.DescriptionTemplate
	}
	if patch.Tags != nil {
		c.Tags = *patch.Tags
	}
	if patch.CategoryID != nil {
		c.CategoryID = *patch.CategoryID
	}
	if patch.Categories != nil {
		c.Categories = *patch.Categories
	}
	c.UpdatedAt = time.Now().UTC()

	cp := *c
	return &cp, nil
}

func (r *ChannelRepo) Delete(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	if _, ok := r.channels[channelID]; !ok {
		return db.ErrNotFound
	}
	delete(r.channels, channelID)
	return nil
}

func (r *ChannelRepo) SetEnabled(ctx context.Context, channelID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	c, ok := r.channels[channelID]
	if !ok {
		return db.ErrNotFound
	}
	c.Enabled = enabled
	c.UpdatedAt = time.Now().UTC()
	r.Writes[channelID]++
	return nil
}

func (r *ChannelRepo) IncrementUploadCount(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	c, ok := r.channels[channelID]
	if !ok {
		return db.ErrNotFound
	}
	c.UploadCount++
	return nil
}

func (r *ChannelRepo) Count(ctx context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, 0, r.Err
	}

	var enabled int64
	for _, c := range r.channels {
		if c.Enabled {
			enabled++
		}
	}
	return int64(len(r.channels)), enabled, nil
}

// ConfigRepo holds the singleton settings.
type ConfigRepo struct {
	mu  sync.Mutex
	cfg models.AppConfig

	Err error
}

func (r *ConfigRepo) Get(ctx context.Context) (*models.AppConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	cp := r.cfg
	return &cp, nil
}

func (r *ConfigRepo) Upsert(ctx context.Context, patch models.ConfigPatch) (*models.AppConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	if patch.DriveFolderID != nil {
		r.cfg.DriveFolderID = *patch.DriveFolderID
	}
	if patch.VideoTitle != nil {
		r.cfg.VideoTitle = *patch.VideoTitle
	}
	if patch.VideoDescription != nil {
		r.cfg.VideoDescription = *patch.VideoDescription
	}
	if patch.VideoTags != nil {
		r.cfg.VideoTags = *patch.VideoTags
	}
	r.cfg.UpdatedAt = time.Now().UTC()

	cp := r.cfg
	return &cp, nil
}

// HistoryRepo is an append-only slice.
type HistoryRepo struct {
	mu      sync.Mutex
	records []*models.UploadHistory

	Err error
}

// Records returns a snapshot of everything appended.
func (r *HistoryRepo) Records() []*models.UploadHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.UploadHistory(nil), r.records...)
}

func (r *HistoryRepo) Append(ctx context.Context, record *models.UploadHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *HistoryRepo) List(ctx context.Context, filter models.HistoryFilter) ([]*models.UploadHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	matched := r.filter(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	if filter.Offset >= len(matched) {
		return []*models.UploadHistory{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *HistoryRepo) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return int64(len(r.filter(filter))), nil
}

func (r *HistoryRepo) CountByChannel(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	counts := make(map[string]int64)
	for _, rec := range r.records {
		counts[rec.ChannelID]++
	}
	return counts, nil
}

func (r *HistoryRepo) filter(filter models.HistoryFilter) []*models.UploadHistory {
	var out []*models.UploadHistory
	for _, rec := range r.records {
		if filter.ChannelID != "" && rec.ChannelID != filter.ChannelID {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out
}
