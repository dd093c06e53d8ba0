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

type WorkLogMongoRepo struct {
	collection *mongo.Collection
}

func NewWorkLogMongoRepo(db *mongo.Database) *WorkLogMongoRepo {
	return &WorkLogMongoRepo{collection: db.Collection("employee_logs")}
}

func (r *WorkLogMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "employeeId", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "taskId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create work log indexes: %v", err)
	}
	return nil
}

func (r *WorkLogMongoRepo) Create(ctx context.Context, w *models.WorkLog) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	w.Version = 1
	if _, err := r.collection.InsertOne(ctx, w); err != nil {
		return fmt.Errorf("failed to create work log: %v", err)
	}
	return nil
}

func (r *WorkLogMongoRepo) Get(ctx context.Context, id string) (*models.WorkLog, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *WorkLogMongoRepo) Update(ctx context.Context, w *models.WorkLog) error {
	expected := w.Version
	w.Version = expected + 1
	w.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": w.ID, "version": expected}, w)
	if err != nil {
		w.Version = expected
		return fmt.Errorf("failed to update work log %s: %v", w.ID, err)
	}
	if res.MatchedCount == 0 {
		w.Version = expected
		return missingOrConflict(ctx, r.collection, w.ID)
	}
	return nil
}

func (r *WorkLogMongoRepo) LatestForTask(ctx context.Context, taskID, logType string) (*models.WorkLog, error) {
	filter := bson.M{"taskId": taskID}
	if logType != "" {
		filter["logType"] = logType
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *WorkLogMongoRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.WorkLog, error) {
	var w models.WorkLog
	var err error
	if opts != nil {
		err = r.collection.FindOne(ctx, filter, opts).Decode(&w)
	} else {
		err = r.collection.FindOne(ctx, filter).Decode(&w)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find work log: %v", err)
	}
	return &w, nil
}

func (r *WorkLogMongoRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*models.WorkLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"employeeId": employeeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve work logs: %v", err)
	}
	defer cursor.Close(ctx)

	var logs []*models.WorkLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode work logs: %v", err)
	}
	return logs, nil
}

func (r *WorkLogMongoRepo) CountForDay(ctx context.Context, employeeID, date string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"employeeId": employeeID, "date": date})
	if err != nil {
		return 0, fmt.Errorf("failed to count work logs: %v", err)
	}
	return int(n), nil
}
