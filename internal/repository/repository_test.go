package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestOpen(t *testing.T) {
	t.Run("no driver", func(t *testing.T) {
		store, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverNone})
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
		assert.Error(t, err)
	})

	t.Run("empty mongo uri", func(t *testing.T) {
		_, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverMongo})
		assert.Error(t, err)
	})
}

func TestHistoryWhere(t *testing.T) {
	where, args := historyWhere(models.HistoryFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = historyWhere(models.HistoryFilter{ChannelID: "ch1"})
	assert.Equal(t, "WHERE channel_id = $1", where)
	assert.Equal(t, []interface{}{"ch1"}, args)
}

func TestHistoryFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, historyFilter(models.HistoryFilter{Limit: 10}))
	assert.Equal(t, bson.M{"channel_id": "ch1"}, historyFilter(models.HistoryFilter{ChannelID: "ch1"}))
}

func TestHistoryDocumentToModel(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)

	got := historyDocument{
		ID:          id.String(),
		VideoID:     "drive123",
		YouTubeID:   "yt123",
		ChannelID:   "ch1",
		ChannelName: "Cooking",
		UploadedAt:  at,
		YouTubeURL:  "https://www.youtube.com/shorts/yt123",
	}.toModel()

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "yt123", got.YouTubeID)
	assert.Equal(t, at, got.UploadedAt)
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}
