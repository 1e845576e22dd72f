package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/db"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStore builds a Store over database dbName.
func NewMongoStore(client *mongo.Client, dbName string) *Store {
	database := client.Database(dbName)

	return &Store{
		Channels: NewMongoChannelRepository(database),
		Config:   NewMongoConfigRepository(database),
		History:  NewMongoHistoryRepository(database),
		driver:   config.DriverMongo,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func(ctx context.Context) error {
			return db.CloseMongo(ctx, client)
		},
	}
}

// EnsureMongoIndexes creates the indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{
			collection: ChannelsCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "channel_id", Value: 1}},
				Options: options.Index().SetName("channel_id_unique").SetUnique(true),
			},
		},
		{
			collection: HistoryCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "uploaded_at", Value: -1}},
				Options: options.Index().SetName("uploaded_at_desc"),
			},
		},
		{
			collection: HistoryCollection,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "channel_id", Value: 1},
					{Key: "uploaded_at", Value: -1},
				},
				Options: options.Index().SetName("channel_uploaded_at"),
			},
		},
	}

	for _, idx := range indexes {
		if _, err := database.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil && !db.IsIndexExists(err) {
			return db.WrapMongoError(err, "create index "+idx.collection)
		}
	}

	return nil
}

type mongoChannelRepository struct {
	coll *mongo.Collection
}

// NewMongoChannelRepository creates a ChannelRepository over the channels collection.
func NewMongoChannelRepository(database *mongo.Database) ChannelRepository {
	return &mongoChannelRepository{coll: database.Collection(ChannelsCollection)}
}

func (r *mongoChannelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, db.WrapMongoError(err, "list channels")
	}

	channels := []*models.Channel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, db.WrapMongoError(err, "decode channels")
	}

	return channels, nil
}

func (r *mongoChannelRepository) Get(ctx context.Context, channelID string) (*models.Channel, error) {
	channel := &models.Channel{}
	if err := r.coll.FindOne(ctx, bson.M{"channel_id": channelID}).Decode(channel); err != nil {
		return nil, db.WrapMongoError(err, "get channel")
	}
	return channel, nil
}

func (r *mongoChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now
	if channel.Tags == nil {
		channel.Tags = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, channel); err != nil {
		return db.WrapMongoError(err, "create channel")
	}
	return nil
}

func (r *mongoChannelRepository) Update(ctx context.Context, channelID string, patch models.ChannelPatch) (*models.Channel, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if patch.ChannelName != nil {
		set["channel_name"] = *patch.ChannelName
	}
	if patch.DriveFolderID != nil {
		set["drive_folder_id"] = *patch.DriveFolderID
	}
	if patch.DriveFolderURL != nil {
		set["drive_folder_url"] = *patch.DriveFolderURL
	}
	if patch.Enabled != nil {
		set["enabled"] = *patch.Enabled
	}
	if patch.TitleTemplate != nil {
		set["title_template"] = *patch.TitleTemplate
	}
	if patch.DescriptionTemplate != nil {
		set["description_template"] = *patch.DescriptionTemplate
	}
	if patch.Tags != nil {
		set["tags"] = nonNil(*patch.Tags)
	}
	if patch.CategoryID != nil {
		set["category_id"] = *patch.CategoryID
	}
	if patch.Categories != nil {
		set["categories"] = nonNil(*patch.Categories)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	channel := &models.Channel{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"channel_id": channelID}, bson.M{"$set": set}, opts).Decode(channel)
	if err != nil {
		return nil, db.WrapMongoError(err, "update channel")
	}

	return channel, nil
}

func (r *mongoChannelRepository) Delete(ctx context.Context, channelID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return db.WrapMongoError(err, "delete channel")
	}
	if result.DeletedCount == 0 {
		return db.WrapMongoError(mongo.ErrNoDocuments, "delete channel")
	}
	return nil
}

func (r *mongoChannelRepository) SetEnabled(ctx context.Context, channelID string, enabled bool) error {
	update := bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, channelID, update, "set channel enabled")
}

func (r *mongoChannelRepository) IncrementUploadCount(ctx context.Context, channelID string) error {
	update := bson.M{
		"$inc": bson.M{"upload_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.updateOne(ctx, channelID, update, "increment upload count")
}

func (r *mongoChannelRepository) updateOne(ctx context.Context, channelID string, update bson.M, operation string) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"channel_id": channelID}, update)
	if err != nil {
		return db.WrapMongoError(err, operation)
	}
	if result.MatchedCount == 0 {
		return db.WrapMongoError(mongo.ErrNoDocuments, operation)
	}
	return nil
}

func (r *mongoChannelRepository) Count(ctx context.Context) (int64, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, 0, db.WrapMongoError(err, "count channels")
	}

	enabled, err := r.coll.CountDocuments(ctx, bson.M{"enabled": true})
	if err != nil {
		return 0, 0, db.WrapMongoError(err, "count enabled channels")
	}

	return total, enabled, nil
}

type mongoConfigRepository struct {
	coll *mongo.Collection
}

// NewMongoConfigRepository creates a ConfigRepository over the singleton config document.
func NewMongoConfigRepository(database *mongo.Database) ConfigRepository {
	return &mongoConfigRepository{coll: database.Collection(ConfigCollection)}
}

func (r *mongoConfigRepository) Get(ctx context.Context) (*models.AppConfig, error) {
	cfg := &models.AppConfig{}
	err := r.coll.FindOne(ctx, bson.M{"_id": models.ConfigDocumentID}).Decode(cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.AppConfig{VideoTags: []string{}}, nil
	}
	if err != nil {
		return nil, db.WrapMongoError(err, "get config")
	}

	if cfg.VideoTags == nil {
		cfg.VideoTags = []string{}
	}
	return cfg, nil
}

func (r *mongoConfigRepository) Upsert(ctx context.Context, patch models.ConfigPatch) (*models.AppConfig, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if patch.DriveFolderID != nil {
		set["drive_folder_id"] = *patch.DriveFolderID
	}
	if patch.VideoTitle != nil {
		set["video_title"] = *patch.VideoTitle
	}
	if patch.VideoDescription != nil {
		set["video_description"] = *patch.VideoDescription
	}
	if patch.VideoTags != nil {
		set["video_tags"] = nonNil(*patch.VideoTags)
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	cfg := &models.AppConfig{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": models.ConfigDocumentID}, bson.M{"$set": set}, opts).Decode(cfg)
	if err != nil {
		return nil, db.WrapMongoError(err, "upsert config")
	}

	if cfg.VideoTags == nil {
		cfg.VideoTags = []string{}
	}
	return cfg, nil
}

// historyDocument keeps the record id as a string so it stays readable in the shell.
type historyDocument struct {
	ID          string    `bson:"_id"`
	VideoID     string    `bson:"video_id"`
	YouTubeID   string    `bson:"youtube_id"`
	Title       string    `bson:"title"`
	ChannelID   string    `bson:"channel_id"`
	ChannelName string    `bson:"channel_name"`
	UploadedAt  time.Time `bson:"uploaded_at"`
	YouTubeURL  string    `bson:"youtube_url"`
}

func (d historyDocument) toModel() *models.UploadHistory {
	id, _ := uuid.Parse(d.ID)
	return &models.UploadHistory{
		ID:          id,
		VideoID:     d.VideoID,
		YouTubeID:   d.YouTubeID,
		Title:       d.Title,
		ChannelID:   d.ChannelID,
		ChannelName: d.ChannelName,
		UploadedAt:  d.UploadedAt,
		YouTubeURL:  d.YouTubeURL,
	}
}

type mongoHistoryRepository struct {
	coll *mongo.Collection
}

// NewMongoHistoryRepository creates a HistoryRepository over the upload_history collection.
func NewMongoHistoryRepository(database *mongo.Database) HistoryRepository {
	return &mongoHistoryRepository{coll: database.Collection(HistoryCollection)}
}

func (r *mongoHistoryRepository) Append(ctx context.Context, record *models.UploadHistory) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	doc := historyDocument{
		ID:          record.ID.String(),
		VideoID:     record.VideoID,
		YouTubeID:   record.YouTubeID,
		Title:       record.Title,
		ChannelID:   record.ChannelID,
		ChannelName: record.ChannelName,
		UploadedAt:  record.UploadedAt,
		YouTubeURL:  record.YouTubeURL,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return db.WrapMongoError(err, "append upload history")
	}
	return nil
}

func historyFilter(filter models.HistoryFilter) bson.M {
	if filter.ChannelID == "" {
		return bson.M{}
	}
	return bson.M{"channel_id": filter.ChannelID}
}

func (r *mongoHistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]*models.UploadHistory, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).
		SetLimit(int64(filter.Limit)).
		SetSkip(int64(filter.Offset))

	cursor, err := r.coll.Find(ctx, historyFilter(filter), opts)
	if err != nil {
		return nil, db.WrapMongoError(err, "list upload history")
	}

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, db.WrapMongoError(err, "decode upload history")
	}

	records := make([]*models.UploadHistory, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toModel())
	}
	return records, nil
}

func (r *mongoHistoryRepository) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, historyFilter(filter))
	if err != nil {
		return 0, db.WrapMongoError(err, "count upload history")
	}
	return total, nil
}

func (r *mongoHistoryRepository) CountByChannel(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$channel_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, db.WrapMongoError(err, "count upload history by channel")
	}

	var rows []struct {
		ChannelID string `bson:"_id"`
		Count     int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, db.WrapMongoError(err, "decode channel counts")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ChannelID] = row.Count
	}
	return counts, nil
}
