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

type TaskMongoRepo struct {
	collection *mongo.Collection
}

func NewTaskMongoRepo(db *mongo.Database) *TaskMongoRepo {
	return &TaskMongoRepo{collection: db.Collection("tasks")}
}

func (r *TaskMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "projectName", Value: 1}, {Key: "taskTitle", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %v", err)
	}
	return nil
}

// Insert rejects a task whose (project, title) pair is held by a task that is
// not completed yet. The check and the insert are separate round trips, so
// this is a coarse guard against double submits, not a uniqueness constraint.
func (r *TaskMongoRepo) Insert(ctx context.Context, t *models.Task) error {
	filter := bson.M{
		"projectName": t.ProjectName,
		"taskTitle":   t.TaskTitle,
		"status":      bson.M{"$ne": models.StatusCompleted},
	}
	err := r.collection.FindOne(ctx, filter).Err()
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to check duplicate task: %v", err)
	}

	if t.ID == "" {
		t.ID = NewID()
	}
	t.Version = 1
	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to create task: %v", err)
	}
	return nil
}

func (r *TaskMongoRepo) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %v", id, err)
	}
	return &task, nil
}

func (r *TaskMongoRepo) Update(ctx context.Context, t *models.Task) error {
	expected := t.Version
	t.Version = expected + 1
	t.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID, "version": expected}, t)
	if err != nil {
		t.Version = expected
		return fmt.Errorf("failed to update task %s: %v", t.ID, err)
	}
	if res.MatchedCount == 0 {
		t.Version = expected
		return missingOrConflict(ctx, r.collection, t.ID)
	}
	return nil
}

func (r *TaskMongoRepo) ListByStatus(ctx context.Context, statuses ...models.TaskStatus) ([]*models.Task, error) {
	filter := bson.M{}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter)
}

func (r *TaskMongoRepo) ListByAssignee(ctx context.Context, userID string, statuses ...models.TaskStatus) ([]*models.Task, error) {
	filter := bson.M{"assignedTo": userID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter)
}

func (r *TaskMongoRepo) find(ctx context.Context, filter bson.M) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}
	return tasks, nil
}

func (r *TaskMongoRepo) Stats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	projects, err := r.collection.Distinct(ctx, "projectName", bson.M{})
	if err != nil {
		return stats, fmt.Errorf("failed to count projects: %v", err)
	}
	stats.TotalProjects = len(projects)

	counts := []struct {
		filter bson.M
		dst    *int
	}{
		{bson.M{}, &stats.TotalTasks},
		{bson.M{"status": models.StatusPending}, &stats.PendingTasks},
		{bson.M{"status": models.StatusInProgress}, &stats.ActiveTasks},
	}
	for _, c := range counts {
		n, err := r.collection.CountDocuments(ctx, c.filter)
		if err != nil {
			return stats, fmt.Errorf("failed to count tasks: %v", err)
		}
		*c.dst = int(n)
	}
	return stats, nil
}

// missingOrConflict tells a lost version race apart from a deleted record
// after a conditional write matched nothing.
func missingOrConflict(ctx context.Context, c *mongo.Collection, id string) error {
	n, err := c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check record %s: %v", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}
