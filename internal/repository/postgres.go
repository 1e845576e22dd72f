package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/db"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
)

// NewPostgresStore builds a Store over an open pgx pool. Tables come from migrations/.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Channels: NewPostgresChannelRepository(pool),
		Config:   NewPostgresConfigRepository(pool),
		History:  NewPostgresHistoryRepository(pool),
		driver:   config.DriverPostgres,
		ping:     pool.Ping,
		close: func(context.Context) error {
			db.ClosePool(pool)
			return nil
		},
	}
}

const channelColumns = `channel_id, channel_name, drive_folder_id, drive_folder_url, enabled,
	title_template, description_template, tags, category_id, categories,
	upload_count, created_at, updated_at`

type pgChannelRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChannelRepository creates a ChannelRepository backed by the channels table.
func NewPostgresChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &pgChannelRepository{pool: pool}
}

func (r *pgChannelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list channels")
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (r *pgChannelRepository) Get(ctx context.Context, channelID string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE channel_id = $1`

	channel, err := scanChannel(r.pool.QueryRow(ctx, query, channelID))
	if err != nil {
		return nil, db.WrapError(err, "get channel")
	}

	return channel, nil
}

func (r *pgChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now

	query := `
		INSERT INTO channels (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		channel.ChannelID,
		channel.ChannelName,
		channel.DriveFolderID,
		channel.DriveFolderURL,
		channel.Enabled,
		channel.TitleTemplate,
		channel.DescriptionTemplate,
		nonNil(channel.Tags),
		channel.CategoryID,
		nonNil(channel.Categories),
		channel.UploadCount,
		channel.CreatedAt,
		channel.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create channel")
	}

	return nil
}

func (r *pgChannelRepository) Update(ctx context.Context, channelID string, patch models.ChannelPatch) (*models.Channel, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.ChannelName != nil {
		add("channel_name", *patch.ChannelName)
	}
	if patch.DriveFolderID != nil {
		add("drive_folder_id", *patch.DriveFolderID)
	}
	if patch.DriveFolderURL != nil {
		add("drive_folder_url", *patch.DriveFolderURL)
	}
	if patch.Enabled != nil {
		add("enabled", *patch.Enabled)
	}
	if patch.TitleTemplate != nil {
		add("title_template", *patch.TitleTemplate)
	}
	if patch.DescriptionTemplate != nil {
		add("description_template", *patch.DescriptionTemplate)
	}
	if patch.Tags != nil {
		add("tags", nonNil(*patch.Tags))
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.Categories != nil {
		add("categories", nonNil(*patch.Categories))
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf(`
		UPDATE channels
		SET %s
		WHERE channel_id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, channelColumns)
	args = append(args, channelID)

	channel, err := scanChannel(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.WrapError(err, "update channel")
	}

	return channel, nil
}

func (r *pgChannelRepository) Delete(ctx context.Context, channelID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE channel_id = $1`, channelID)
	if err != nil {
		return db.WrapError(err, "delete channel")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete channel")
	}

	return nil
}

func (r *pgChannelRepository) SetEnabled(ctx context.Context, channelID string, enabled bool) error {
	query := `UPDATE channels SET enabled = $1, updated_at = $2 WHERE channel_id = $3`

	result, err := r.pool.Exec(ctx, query, enabled, time.Now().UTC(), channelID)
	if err != nil {
		return db.WrapError(err, "set channel enabled")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "set channel enabled")
	}

	return nil
}

func (r *pgChannelRepository) IncrementUploadCount(ctx context.Context, channelID string) error {
	query := `UPDATE channels SET upload_count = upload_count + 1, updated_at = $1 WHERE channel_id = $2`

	result, err := r.pool.Exec(ctx, query, time.Now().UTC(), channelID)
	if err != nil {
		return db.WrapError(err, "increment upload count")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "increment upload count")
	}

	return nil
}

func (r *pgChannelRepository) Count(ctx context.Context) (int64, int64, error) {
	var total, enabled int64
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE enabled) FROM channels`

	if err := r.pool.QueryRow(ctx, query).Scan(&total, &enabled); err != nil {
		return 0, 0, db.WrapError(err, "count channels")
	}

	return total, enabled, nil
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	channel := &models.Channel{}
	err := row.Scan(
		&channel.ChannelID,
		&channel.ChannelName,
		&channel.DriveFolderID,
		&channel.DriveFolderURL,
		&channel.Enabled,
		&channel.TitleTemplate,
		&channel.DescriptionTemplate,
		&channel.Tags,
		&channel.CategoryID,
		&channel.Categories,
		&channel.UploadCount,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func scanChannels(rows pgx.Rows) ([]*models.Channel, error) {
	channels := []*models.Channel{}

	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

type pgConfigRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresConfigRepository creates a ConfigRepository backed by the single-row app_config table.
func NewPostgresConfigRepository(pool *pgxpool.Pool) ConfigRepository {
	return &pgConfigRepository{pool: pool}
}

func (r *pgConfigRepository) Get(ctx context.Context) (*models.AppConfig, error) {
	query := `
		SELECT drive_folder_id, video_title, video_description, video_tags, updated_at
		FROM app_config
		WHERE id = $1
	`

	cfg := &models.AppConfig{}
	err := r.pool.QueryRow(ctx, query, models.ConfigDocumentID).Scan(
		&cfg.DriveFolderID,
		&cfg.VideoTitle,
		&cfg.VideoDescription,
		&cfg.VideoTags,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.AppConfig{VideoTags: []string{}}, nil
	}
	if err != nil {
		return nil, db.WrapError(err, "get config")
	}

	return cfg, nil
}

func (r *pgConfigRepository) Upsert(ctx context.Context, patch models.ConfigPatch) (*models.AppConfig, error) {
	now := time.Now().UTC()

	// Unset fields fall back to the stored value through COALESCE.
	query := `
		INSERT INTO app_config (id, drive_folder_id, video_title, video_description, video_tags, updated_at)
		VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, '{}'::text[]), $6)
		ON CONFLICT (id) DO UPDATE
		SET drive_folder_id = COALESCE($2, app_config.drive_folder_id),
		    video_title = COALESCE($3, app_config.video_title),
		    video_description = COALESCE($4, app_config.video_description),
		    video_tags = COALESCE($5, app_config.video_tags),
		    updated_at = $6
		RETURNING drive_folder_id, video_title, video_description, video_tags, updated_at
	`

	var tags []string
	if patch.VideoTags != nil {
		tags = nonNil(*patch.VideoTags)
	}

	cfg := &models.AppConfig{}
	err := r.pool.QueryRow(ctx, query,
		models.ConfigDocumentID,
		patch.DriveFolderID,
		patch.VideoTitle,
		patch.VideoDescription,
		tags,
		now,
	).Scan(
		&cfg.DriveFolderID,
		&cfg.VideoTitle,
		&cfg.VideoDescription,
		&cfg.VideoTags,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "upsert config")
	}

	return cfg, nil
}

type pgHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a HistoryRepository backed by the upload_history table.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &pgHistoryRepository{pool: pool}
}

func (r *pgHistoryRepository) Append(ctx context.Context, record *models.UploadHistory) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO upload_history
		(id, video_id, youtube_id, title, channel_id, channel_name, uploaded_at, youtube_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.VideoID,
		record.YouTubeID,
		record.Title,
		record.ChannelID,
		record.ChannelName,
		record.UploadedAt,
		record.YouTubeURL,
	)
	if err != nil {
		return db.WrapError(err, "append upload history")
	}

	return nil
}

func historyWhere(filter models.HistoryFilter) (string, []interface{}) {
	if filter.ChannelID == "" {
		return "", nil
	}
	return "WHERE channel_id = $1", []interface{}{filter.ChannelID}
}

func (r *pgHistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]*models.UploadHistory, error) {
	whereClause, args := historyWhere(filter)
	argPos := len(args) + 1

	query := fmt.Sprintf(`
		SELECT id, video_id, youtube_id, title, channel_id, channel_name, uploaded_at, youtube_url
		FROM upload_history
		%s
		ORDER BY uploaded_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "list upload history")
	}
	defer rows.Close()

	records := []*models.UploadHistory{}
	for rows.Next() {
		rec := &models.UploadHistory{}
		if err := rows.Scan(
			&rec.ID,
			&rec.VideoID,
			&rec.YouTubeID,
			&rec.Title,
			&rec.ChannelID,
			&rec.ChannelName,
			&rec.UploadedAt,
			&rec.YouTubeURL,
		); err != nil {
			return nil, fmt.Errorf("scan upload history: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload history: %w", err)
	}

	return records, nil
}

func (r *pgHistoryRepository) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	whereClause, args := historyWhere(filter)

	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM upload_history %s", whereClause)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, db.WrapError(err, "count upload history")
	}

	return total, nil
}

func (r *pgHistoryRepository) CountByChannel(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT channel_id, COUNT(*) FROM upload_history GROUP BY channel_id`)
	if err != nil {
		return nil, db.WrapError(err, "count upload history by channel")
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var channelID string
		var n int64
		if err := rows.Scan(&channelID, &n); err != nil {
			return nil, fmt.Errorf("scan channel count: %w", err)
		}
		counts[channelID] = n
	}

	return counts, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
