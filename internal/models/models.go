// Package models contains the records and DTOs for the shorts upload dashboard.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel defaults applied on create.
const (
	DefaultTitleTemplate       = "{trending_title}"
	DefaultDescriptionTemplate = "{trending_description}"
	DefaultCategoryID          = "22"
	DefaultTag                 = "shorts"
)

// ConfigDocumentID is the id of the singleton config record.
const ConfigDocumentID = "main"

// Channel is a configured upload destination.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Channel struct {
	ChannelID           string    `json:"channel_id" bson:"channel_id"`
	ChannelName         string    `json:"channel_name" bson:"channel_name"`
	DriveFolderID       string    `json:"drive_folder_id" bson:"drive_folder_id"`
	DriveFolderURL      string    `json:"drive_folder_url,omitempty" bson:"drive_folder_url,omitempty"`
	Enabled             bool      `json:"enabled" bson:"enabled"`
	TitleTemplate       string    `json:"title_template" bson:"title_template"`
	DescriptionTemplate string    `json:"description_template" bson:"description_template"`
	Tags                []string  `json:"tags" bson:"tags"`
	CategoryID          string    `json:"category_id" bson:"category_id"`
	Categories          []string  `json:"categories,omitempty" bson:"categories,omitempty"`
	UploadCount         int64     `json:"upload_count" bson:"upload_count"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at"`
}

// ApplyDefaults fills the fields a freshly created channel must carry.
func (c *Channel) ApplyDefaults() {
	if c.TitleTemplate == "" {
		c.TitleTemplate = DefaultTitleTemplate
	}
	if c.DescriptionTemplate == "" {
		c.DescriptionTemplate = DefaultDescriptionTemplate
	}
	if c.CategoryID == "" {
		c.CategoryID = DefaultCategoryID
	}
	if len(c.Tags) == 0 {
		c.Tags = []string{DefaultTag}
	}
}

// ChannelPatch carries the mutable subset of a channel. Nil fields are left untouched.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChannelPatch struct {
	ChannelName         *string   `json:"channel_name,omitempty"`
	DriveFolderID       *string   `json:"drive_folder_id,omitempty"`
	DriveFolderURL      *string   `json:"drive_folder_url,omitempty"`
	Enabled             *bool     `json:"enabled,omitempty"`
	TitleTemplate       *string   `json:"title_template,omitempty"`
	DescriptionTemplate *string   `json:"description_template,omitempty"`
	Tags                *[]string `json:"tags,omitempty"`
	CategoryID          *string   `json:"category_id,omitempty"`
	Categories          *[]string `json:"categories,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ChannelPatch) IsEmpty() bool {
	return p.ChannelName == nil && p.DriveFolderID == nil && p.DriveFolderURL == nil &&
		p.Enabled == nil && p.TitleTemplate == nil && p.DescriptionTemplate == nil &&
		p.Tags == nil && p.CategoryID == nil && p.Categories == nil
}

// AppConfig is the singleton of default upload settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AppConfig struct {
	DriveFolderID    string    `json:"drive_folder_id" bson:"drive_folder_id"`
	VideoTitle       string    `json:"video_title" bson:"video_title"`
	VideoDescription string    `json:"video_description" bson:"video_description"`
	VideoTags        []string  `json:"video_tags" bson:"video_tags"`
	UpdatedAt        time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// ConfigPatch updates a subset of AppConfig.
type ConfigPatch struct {
	DriveFolderID    *string
	VideoTitle       *string
	VideoDescription *string
	VideoTags        *[]string
}

// UploadHistory records one completed upload.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type UploadHistory struct {
	ID          uuid.UUID `json:"id"`
	VideoID     string    `json:"video_id"`
	YouTubeID   string    `json:"youtube_id"`
	Title       string    `json:"title"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	UploadedAt  time.Time `json:"uploaded_at"`
	YouTubeURL  string    `json:"youtube_url"`
}

// HistoryFilter narrows a history query.
type HistoryFilter struct {
	ChannelID string
	Limit     int
	Offset    int
}

// YouTubeAccount is an entry of the youtube_accounts map in channels_config.json.
type YouTubeAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TokenEnvVar string `json:"token_env_var"`
}

// UploadResult is the upload output of the automation script. VideoID is the
// YouTube id of the new video; DriveFileID the source file when the script reports it.
// upload-all nests one result per channel under Results.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type UploadResult struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message,omitempty"`
	Error       string         `json:"error,omitempty"`
	VideoID     string         `json:"videoId,omitempty"`
	DriveFileID string         `json:"driveFileId,omitempty"`
	FileName    string         `json:"fileName,omitempty"`
	YouTubeURL  string         `json:"youtubeUrl,omitempty"`
	Title       string         `json:"title,omitempty"`
	ChannelID   string         `json:"channelId,omitempty"`
	ChannelName string         `json:"channelName,omitempty"`
	Results     []UploadResult `json:"results,omitempty"`
}

// Completed flattens a result into the uploads that actually produced a video.
func (r UploadResult) Completed() []UploadResult {
	var out []UploadResult
	if r.Success && r.VideoID != "" {
		leaf := r
		leaf.Results = nil
		out = append(out, leaf)
	}
	for _, sub := range r.Results {
		out = append(out, sub.Completed()...)
	}
	return out
}

// UploadRequest selects what an upload run covers. Precedence: UploadAll, ChannelID, VideoID.
type UploadRequest struct {
	ChannelID string `json:"channelId,omitempty" binding:"omitempty,max=64"`
	UploadAll bool   `json:"uploadAll,omitempty"`
	VideoID   string `json:"videoId,omitempty" binding:"omitempty,max=128"`
}

// AccountActionRequest is the body of POST /api/account.
type AccountActionRequest struct {
	Action string                 `json:"action" binding:"oneof=switch save"`
	Token  map[string]interface{} `json:"token"`
}

// ChannelActionRequest is the body of POST /api/channels.
type ChannelActionRequest struct {
	Action      string                 `json:"action" binding:"oneof=create update delete toggle"`
	ChannelID   string                 `json:"channelId" binding:"required_unless=Action create,max=64"`
	ChannelData map[string]interface{} `json:"channelData" binding:"required_if=Action create,required_if=Action update"`
}

// ConfigUpdateRequest is the body of POST /api/config.
type ConfigUpdateRequest struct {
	Field string      `json:"field" binding:"required,max=64"`
	Value interface{} `json:"value"`
}

// MetadataRequest is the body of POST /api/metadata.
type MetadataRequest struct {
	ChannelID     string `json:"channelId" binding:"required,max=64"`
	VideoFilename string `json:"videoFilename,omitempty" binding:"omitempty,max=255"`
}

// CronResponse is returned by /api/cron.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CronResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	VideoID    string    `json:"videoId,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	YouTubeURL string    `json:"youtubeUrl,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryResponse is returned by /api/history.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HistoryResponse struct {
	Success bool             `json:"success"`
	History []*UploadHistory `json:"history"`
	Count   int              `json:"count"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// UploadEvent is published on the event bus after a completed upload.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type UploadEvent struct {
	ID          uuid.UUID `json:"id"`
	RunID       string    `json:"run_id,omitempty"`
	Source      string    `json:"source"`
	VideoID     string    `json:"video_id"`
	YouTubeID   string    `json:"youtube_id"`
	YouTubeURL  string    `json:"youtube_url"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ErrorResponse is the failure envelope every route returns.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
