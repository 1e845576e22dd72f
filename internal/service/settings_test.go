package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation/automationtest"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository/repotest"
)

func TestSettingsService_Database(t *testing.T) {
	ctx := context.Background()
	repo := &repotest.ConfigRepo{}
	svc := NewSettingsService(config.BackendDatabase, repo, nil, testValidator())

	msg, err := svc.Update(ctx, &models.ConfigUpdateRequest{Field: "video_tags", Value: "shorts, viral"})
	require.NoError(t, err)
	assert.Equal(t, "Updated video_tags successfully", msg)

	_, err = svc.Update(ctx, &models.ConfigUpdateRequest{
		Field: "drive_folder_id",
		Value: "https://drive.google.com/drive/folders/" + testFolderID,
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	cfg, ok := got.(*models.AppConfig)
	require.True(t, ok)
	assert.Equal(t, []string{"shorts", "viral"}, cfg.VideoTags)
	assert.Equal(t, testFolderID, cfg.DriveFolderID)
}

func TestSettingsService_Script(t *testing.T) {
	ctx := context.Background()
	runner := automationtest.NewRunner().
		On("config", `{"drive_folder_id": "", "video_title": "t"}`).
		On("set-tags", `{"success": true}`).
		On("set-description", `{"success": true}`).
		On("set-title", `{"error": "config is read-only"}`)
	svc := NewSettingsService(config.BackendScript, nil, runner, testValidator())

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = svc.Update(ctx, &models.ConfigUpdateRequest{Field: "video_tags", Value: []interface{}{"a", "b"}})
	require.NoError(t, err)
	call, _ := runner.LastCall("set-tags")
	assert.Equal(t, []string{"a,b"}, call.Args)

	_, err = svc.Update(ctx, &models.ConfigUpdateRequest{Field: "video_description", Value: `Say "hi"`})
	require.NoError(t, err)
	call, _ = runner.LastCall("set-description")
	assert.Equal(t, []string{`Say "hi"`}, call.Args)

	_, err = svc.Update(ctx, &models.ConfigUpdateRequest{Field: "video_title", Value: "x"})
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "config is read-only")
}

func TestSettingsService_UnknownField(t *testing.T) {
	runner := automationtest.NewRunner()
	svc := NewSettingsService(config.BackendScript, nil, runner, testValidator())

	_, err := svc.Update(context.Background(), &models.ConfigUpdateRequest{Field: "privacy", Value: "public"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Unknown field: privacy", ve.Message)
	assert.Empty(t, runner.Calls())
}
