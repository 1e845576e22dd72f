package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation/automationtest"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository/repotest"
)

func TestStatsService_ScriptOnly(t *testing.T) {
	runner := automationtest.NewRunner().On("stats", `{"total": 12, "uploaded": 5, "pending": 7}`)
	svc := NewStatsService(runner, nil)

	res, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriveStats{Total: 12, Uploaded: 5, Pending: 7}, res.Stats)
	assert.Nil(t, res.Channels)
	assert.Nil(t, res.HistoryTotal)
}

func TestStatsService_WithStore(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	seedChannels(store.ChannelRepo)
	for _, ch := range []string{"travel", "travel", "food"} {
		require.NoError(t, store.HistoryRepo.Append(ctx, &models.UploadHistory{
			ID: uuid.New(), ChannelID: ch, UploadedAt: time.Now(),
		}))
	}

	runner := automationtest.NewRunner().On("stats", `{"total": 3, "uploaded": 3, "pending": 0}`)
	svc := NewStatsService(runner, store.Store)

	res, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Channels)
	assert.Equal(t, int64(2), *res.Channels)
	assert.Equal(t, int64(1), *res.EnabledChannels)
	assert.Equal(t, int64(3), *res.HistoryTotal)
	assert.Equal(t, map[string]int64{"travel": 2, "food": 1}, res.UploadsByChannel)
}

func TestStatsService_Errors(t *testing.T) {
	t.Run("script failure", func(t *testing.T) {
		runner := automationtest.NewRunner().Fail("stats", &automation.ScriptError{Verb: "stats", Message: "no credentials"})
		_, err := NewStatsService(runner, nil).Stats(context.Background())
		assert.EqualError(t, err, "no credentials")
	})

	t.Run("unexpected shape", func(t *testing.T) {
		runner := automationtest.NewRunner().On("stats", `["not", "an", "object"]`)
		_, err := NewStatsService(runner, nil).Stats(context.Background())
		var pe *automation.ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("store failure", func(t *testing.T) {
		store := repotest.NewStore()
		store.ChannelRepo.Err = errors.New("timeout")
		runner := automationtest.NewRunner().On("stats", `{"total": 0}`)
		_, err := NewStatsService(runner, store.Store).Stats(context.Background())
		var pe *ProcessingError
		assert.ErrorAs(t, err, &pe)
	})
}
