package repositories

import (
	"context"
	"errors"
	"fmt"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserMongoDirectory reads the users collection owned by the users service.
// Ids stored as ObjectIDs decode into the hex string form.
type UserMongoDirectory struct {
	collection *mongo.Collection
}

func NewUserMongoDirectory(db *mongo.Database) *UserMongoDirectory {
	return &UserMongoDirectory{collection: db.Collection("users")}
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": []any{oid, id}}}
	}
	return bson.M{"_id": id}
}

func (d *UserMongoDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.collection.FindOne(ctx, idFilter(id)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %v", id, err)
	}
	return &user, nil
}

func (d *UserMongoDirectory) ListUsers(ctx context.Context) ([]models.User, error) {
	projection := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := d.collection.Find(ctx, bson.M{}, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	return users, nil
}

func (d *UserMongoDirectory) ListUsersByDepartment(ctx context.Context, tag string) ([]string, error) {
	return d.ListUsersByRoles(ctx, tag)
}

func (d *UserMongoDirectory) ListUsersByRoles(ctx context.Context, roles ...string) ([]string, error) {
	projection := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := d.collection.Find(ctx, bson.M{"role": bson.M{"$in": roles}}, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users by role: %v", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode users: %v", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
