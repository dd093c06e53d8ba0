package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskhub/models"

	"github.com/gocql/gocql"
	"github.com/sirupsen/logrus"
)

// NotificationRepo keeps a Cassandra history of every emitted notification,
// partitioned by event name.
type NotificationRepo struct {
	session *gocql.Session
	logger  *logrus.Logger
}

// NewNotificationRepo connects to the cluster and creates the keyspace when missing.
func NewNotificationRepo(hosts []string, keyspace string, logger *logrus.Logger) (*NotificationRepo, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		logger.Errorf("Event ID: CASSANDRA_CONNECT_FAILED, Description: %v", err)
		return nil, err
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`, keyspace)).Exec()
	if err != nil {
		logger.Errorf("Event ID: CASSANDRA_KEYSPACE_FAILED, Description: Failed to create keyspace %s: %v", keyspace, err)
		session.Close()
		return nil, err
	}
	session.Close()

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		logger.Errorf("Event ID: CASSANDRA_CONNECT_FAILED, Description: Failed to connect to keyspace %s: %v", keyspace, err)
		return nil, err
	}

	logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s.", keyspace)
	return &NotificationRepo{
		session: session,
		logger:  logger,
	}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
	nr.logger.Info("Event ID: CASSANDRA_CLOSED, Description: Cassandra session closed.")
}

func (nr *NotificationRepo) CreateTable() error {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			event TEXT,
			payload TEXT,
			created_at TIMESTAMP,
			PRIMARY KEY ((event), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		nr.logger.Errorf("Event ID: CASSANDRA_TABLE_FAILED, Description: Failed to create notifications table: %v", err)
		return err
	}
	return nil
}

// Deliver stores one notification. It satisfies services.Sink.
func (nr *NotificationRepo) Deliver(ctx context.Context, n models.Notification) error {
	id, err := gocql.ParseUUID(n.ID)
	if err != nil {
		id = gocql.TimeUUID()
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	return nr.session.Query(
		`INSERT INTO notifications (id, event, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, n.Event, string(payload), n.CreatedAt,
	).WithContext(ctx).Exec()
}

func (nr *NotificationRepo) ListByEvent(ctx context.Context, event string, limit int) ([]models.Notification, error) {
	iter := nr.session.Query(
		`SELECT id, event, payload, created_at FROM notifications WHERE event = ? LIMIT ?`,
		event, limit,
	).WithContext(ctx).Iter()

	var out []models.Notification
	var (
		id        gocql.UUID
		ev        string
		payload   string
		createdAt time.Time
	)
	for iter.Scan(&id, &ev, &payload, &createdAt) {
		n := models.Notification{ID: id.String(), Event: ev, CreatedAt: createdAt}
		var decoded any
		if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
			n.Payload = decoded
		}
		out = append(out, n)
	}
	if err := iter.Close(); err != nil {
		nr.logger.Errorf("Event ID: CASSANDRA_QUERY_FAILED, Description: Failed to list notifications for %s: %v", event, err)
		return nil, err
	}
	return out, nil
}
