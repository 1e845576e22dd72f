package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation/automationtest"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository/repotest"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
)

const testFolderID = "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"

func testValidator() *validation.Validator {
	return validation.New(5000, 30)
}

func seedChannels(repo *repotest.ChannelRepo) {
	repo.Put(&models.Channel{ChannelID: "travel", ChannelName: "Travel", DriveFolderID: testFolderID, Enabled: true})
	repo.Put(&models.Channel{ChannelID: "food", ChannelName: "Food", DriveFolderID: testFolderID, Enabled: false})
}

func TestChannelService_Database(t *testing.T) {
	ctx := context.Background()

	t.Run("create applies defaults", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		res, err := svc.Apply(ctx, &models.ChannelActionRequest{
			Action: ActionCreate,
			ChannelData: map[string]interface{}{
				"channel_id":       "travel",
				"channel_name":     "Travel",
				"drive_folder_url": "https://drive.google.com/drive/folders/" + testFolderID + "?usp=sharing",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Channel travel created", res.Message)

		stored, err := repo.Get(ctx, "travel")
		require.NoError(t, err)
		assert.Equal(t, testFolderID, stored.DriveFolderID)
		assert.True(t, stored.Enabled)
		assert.Equal(t, []string{"shorts"}, stored.Tags)
		assert.Equal(t, "22", stored.CategoryID)
	})

	t.Run("create duplicate", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		seedChannels(repo)
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		_, err := svc.Apply(ctx, &models.ChannelActionRequest{
			Action:      ActionCreate,
			ChannelData: map[string]interface{}{"channel_id": "travel", "channel_name": "x", "drive_folder_id": testFolderID},
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "channel already exists: travel", ve.Message)
	})

	t.Run("update patches only given fields", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		seedChannels(repo)
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		res, err := svc.Apply(ctx, &models.ChannelActionRequest{
			Action:      ActionUpdate,
			ChannelID:   "travel",
			ChannelData: map[string]interface{}{"title_template": "{trending_title} #travel"},
		})
		require.NoError(t, err)
		assert.Equal(t, "{trending_title} #travel", res.Channel.TitleTemplate)
		assert.Equal(t, "Travel", res.Channel.ChannelName)
	})

	t.Run("update rejects id change", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		seedChannels(repo)
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		_, err := svc.Apply(ctx, &models.ChannelActionRequest{
			Action:      ActionUpdate,
			ChannelID:   "travel",
			ChannelData: map[string]interface{}{"channel_id": "food"},
		})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("toggle writes only the target", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		seedChannels(repo)
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		res, err := svc.Apply(ctx, &models.ChannelActionRequest{Action: ActionToggle, ChannelID: "food"})
		require.NoError(t, err)
		assert.True(t, res.Channel.Enabled)
		assert.Equal(t, "Channel food enabled", res.Message)

		assert.Equal(t, 1, repo.Writes["food"])
		assert.Zero(t, repo.Writes["travel"])

		travel, _ := repo.Get(ctx, "travel")
		assert.True(t, travel.Enabled)
	})

	t.Run("missing channel", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		for _, action := range []string{ActionToggle, ActionDelete} {
			_, err := svc.Apply(ctx, &models.ChannelActionRequest{Action: action, ChannelID: "ghost"})
			var nf *NotFoundError
			assert.ErrorAs(t, err, &nf, action)
		}
	})

	t.Run("delete and list", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		seedChannels(repo)
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		_, err := svc.Apply(ctx, &models.ChannelActionRequest{Action: ActionDelete, ChannelID: "food"})
		require.NoError(t, err)

		res, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, res.Channels, 1)
		assert.Equal(t, "travel", res.Channels[0].ChannelID)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := repotest.NewChannelRepo()
		repo.Err = errors.New("connection refused")
		svc := NewChannelService(config.BackendDatabase, repo, nil, testValidator())

		_, err := svc.List(ctx)
		var pe *ProcessingError
		assert.ErrorAs(t, err, &pe)
	})
}

func TestChannelService_InvalidRequests(t *testing.T) {
	svc := NewChannelService(config.BackendDatabase, repotest.NewChannelRepo(), nil, testValidator())

	tests := []struct {
		name string
		req  *models.ChannelActionRequest
		want string
	}{
		{name: "unknown action", req: &models.ChannelActionRequest{Action: "rename", ChannelID: "x"}, want: "Invalid action"},
		{name: "missing id", req: &models.ChannelActionRequest{Action: ActionToggle}, want: `invalid channelId: ""`},
		{name: "bad id", req: &models.ChannelActionRequest{Action: ActionDelete, ChannelID: "a b"}, want: `invalid channelId: "a b"`},
		{name: "missing data", req: &models.ChannelActionRequest{Action: ActionUpdate, ChannelID: "x"}, want: "channelData has no updatable fields"},
		{name: "empty patch", req: &models.ChannelActionRequest{Action: ActionUpdate, ChannelID: "x", ChannelData: map[string]interface{}{"foo": 1}}, want: "channelData has no updatable fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.want, ve.Message)
		})
	}
}

func TestChannelService_Script(t *testing.T) {
	ctx := context.Background()
	runner := automationtest.NewRunner().On("channels", `{"success": true, "channels": []}`)
	svc := NewChannelService(config.BackendScript, nil, runner, testValidator())

	res, err := svc.List(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "channels": []}`, string(res.Raw))

	_, err = svc.Apply(ctx, &models.ChannelActionRequest{
		Action:      ActionUpdate,
		ChannelID:   "travel",
		ChannelData: map[string]interface{}{"channel_name": "It's \"quoted\""},
	})
	require.NoError(t, err)

	call, ok := runner.LastCall("channels")
	require.True(t, ok)
	require.Len(t, call.Args, 3)
	assert.Equal(t, []string{"update", "travel"}, call.Args[:2])

	var patch map[string]string
	require.NoError(t, json.Unmarshal([]byte(call.Args[2]), &patch))
	assert.Equal(t, map[string]string{"channel_name": `It's "quoted"`}, patch)

	_, err = svc.Apply(ctx, &models.ChannelActionRequest{Action: ActionToggle, ChannelID: "travel"})
	require.NoError(t, err)
	call, _ = runner.LastCall("channels")
	assert.Equal(t, []string{"toggle", "travel"}, call.Args)
}
