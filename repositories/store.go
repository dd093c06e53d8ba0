package repositories

import (
	"context"
	"errors"

	"taskhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicate       = errors.New("duplicate record")
)

// TaskRepository persists tasks. Update is a compare-and-swap on Version:
// it succeeds only when the stored version equals t.Version, and bumps it.
type TaskRepository interface {
	Insert(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	ListByStatus(ctx context.Context, statuses ...models.TaskStatus) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, userID string, statuses ...models.TaskStatus) ([]*models.Task, error)
	Stats(ctx context.Context) (models.DashboardStats, error)
}

// ChannelRepository persists channels. FindOrCreate is keyed by SyncKey and
// must be atomic so concurrent provisioning never yields two channels.
type ChannelRepository interface {
	Get(ctx context.Context, id string) (*models.Channel, error)
	FindByKey(ctx context.Context, key string) (*models.Channel, error)
	FindByTaskID(ctx context.Context, taskID string) (*models.Channel, error)
	FindDM(ctx context.Context, userA, userB string) (*models.Channel, error)
	FindOrCreate(ctx context.Context, ch *models.Channel) (*models.Channel, bool, error)
	Create(ctx context.Context, ch *models.Channel) error
	Update(ctx context.Context, ch *models.Channel) error
	Delete(ctx context.Context, id string) (int, error)
	List(ctx context.Context) ([]*models.Channel, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Channel, error)
}

// WorkLogRepository persists work logs. LatestForTask with an empty logType
// matches any log type.
type WorkLogRepository interface {
	Create(ctx context.Context, w *models.WorkLog) error
	Get(ctx context.Context, id string) (*models.WorkLog, error)
	Update(ctx context.Context, w *models.WorkLog) error
	LatestForTask(ctx context.Context, taskID, logType string) (*models.WorkLog, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*models.WorkLog, error)
	CountForDay(ctx context.Context, employeeID, date string) (int, error)
}

// UserDirectory is the read-only roster lookup.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByDepartment(ctx context.Context, tag string) ([]string, error)
	ListUsersByRoles(ctx context.Context, roles ...string) ([]string, error)
}

// NewID returns a fresh hex object id, the id format used by every store.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func statusIn(s models.TaskStatus, statuses []models.TaskStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
