package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChannelMongoRepo struct {
	collection *mongo.Collection
}

func NewChannelMongoRepo(db *mongo.Database) *ChannelMongoRepo {
	return &ChannelMongoRepo{collection: db.Collection("channels")}
}

// EnsureIndexes creates the unique sync key index FindOrCreate relies on.
func (r *ChannelMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "syncKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"syncKey": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "taskId", Value: 1}}},
		{Keys: bson.D{{Key: "parent", Value: 1}}},
		{Keys: bson.D{{Key: "allowedUsers", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create channel indexes: %v", err)
	}
	return nil
}

func (r *ChannelMongoRepo) findOne(ctx context.Context, filter bson.M) (*models.Channel, error) {
	var ch models.Channel
	err := r.collection.FindOne(ctx, filter).Decode(&ch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find channel: %v", err)
	}
	return &ch, nil
}

func (r *ChannelMongoRepo) Get(ctx context.Context, id string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ChannelMongoRepo) FindByKey(ctx context.Context, key string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"syncKey": key})
}

func (r *ChannelMongoRepo) FindByTaskID(ctx context.Context, taskID string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"taskId": taskID})
}

func (r *ChannelMongoRepo) FindDM(ctx context.Context, userA, userB string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{
		"type":         models.ChannelDM,
		"allowedUsers": bson.M{"$all": []string{userA, userB}},
	})
}

// FindOrCreate upserts on syncKey with $setOnInsert, so the document is only
// written when no channel holds the key yet.
func (r *ChannelMongoRepo) FindOrCreate(ctx context.Context, ch *models.Channel) (*models.Channel, bool, error) {
	if ch.ID == "" {
		ch.ID = NewID()
	}
	now := time.Now()
	ch.CreatedAt, ch.UpdatedAt, ch.Version = now, now, 1

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"syncKey": ch.SyncKey},
		bson.M{"$setOnInsert": ch},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to upsert channel %s: %v", ch.SyncKey, err)
	}
	if err == nil && res.UpsertedCount == 1 {
		return ch, true, nil
	}
	existing, err := r.FindByKey(ctx, ch.SyncKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ChannelMongoRepo) Create(ctx context.Context, ch *models.Channel) error {
	if ch.ID == "" {
		ch.ID = NewID()
	}
	now := time.Now()
	ch.CreatedAt, ch.UpdatedAt, ch.Version = now, now, 1
	if _, err := r.collection.InsertOne(ctx, ch); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create channel: %v", err)
	}
	return nil
}

func (r *ChannelMongoRepo) Update(ctx context.Context, ch *models.Channel) error {
	expected := ch.Version
	ch.Version = expected + 1
	ch.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": ch.ID, "version": expected}, ch)
	if err != nil {
		ch.Version = expected
		return fmt.Errorf("failed to update channel %s: %v", ch.ID, err)
	}
	if res.MatchedCount == 0 {
		ch.Version = expected
		return missingOrConflict(ctx, r.collection, ch.ID)
	}
	return nil
}

// Delete removes the channel and every channel whose parent it is.
func (r *ChannelMongoRepo) Delete(ctx context.Context, id string) (int, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to delete channel %s: %v", id, err)
	}
	if res.DeletedCount == 0 {
		return 0, ErrNotFound
	}
	children, err := r.collection.DeleteMany(ctx, bson.M{"parent": id})
	if err != nil {
		return 1, fmt.Errorf("failed to delete children of channel %s: %v", id, err)
	}
	return 1 + int(children.DeletedCount), nil
}

func (r *ChannelMongoRepo) List(ctx context.Context) ([]*models.Channel, error) {
	return r.find(ctx, bson.M{})
}

func (r *ChannelMongoRepo) ListForUser(ctx context.Context, userID string) ([]*models.Channel, error) {
	return r.find(ctx, bson.M{"$or": []bson.M{
		{"type": models.ChannelGlobal},
		{"allowedUsers": userID},
	}})
}

func (r *ChannelMongoRepo) find(ctx context.Context, filter bson.M) ([]*models.Channel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve channels: %v", err)
	}
	defer cursor.Close(ctx)

	var channels []*models.Channel
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %v", err)
	}
	return channels, nil
}
