package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskhub/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WorkLogPgStore is a PostgreSQL-backed WorkLogRepository for deployments
// that keep time reporting in SQL. Rework history is stored as JSONB.
type WorkLogPgStore struct {
	pool *pgxpool.Pool
}

func NewWorkLogPgStore(pool *pgxpool.Pool) *WorkLogPgStore {
	return &WorkLogPgStore{pool: pool}
}

const workLogColumns = `id, employee_id, task_id, task_title, project_name, date, start_time, end_time,
	duration, duration_minutes, description, status, task_no, task_owner, assigned_by, task_type,
	time_automation, log_type, rework_count, rework_start_time, rework_history, version, created_at, updated_at`

// EnsureTable creates the work_logs table if it doesn't exist.
func (s *WorkLogPgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS work_logs (
			id                TEXT PRIMARY KEY,
			employee_id       TEXT NOT NULL,
			task_id           TEXT NOT NULL DEFAULT '',
			task_title        TEXT NOT NULL DEFAULT '',
			project_name      TEXT NOT NULL DEFAULT '',
			date              TEXT NOT NULL,
			start_time        TEXT NOT NULL DEFAULT '',
			end_time          TEXT NOT NULL DEFAULT '',
			duration          TEXT NOT NULL DEFAULT '',
			duration_minutes  INTEGER NOT NULL DEFAULT 0,
			description       TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL DEFAULT '',
			task_no           INTEGER NOT NULL DEFAULT 0,
			task_owner        TEXT NOT NULL DEFAULT '',
			assigned_by       TEXT NOT NULL DEFAULT '',
			task_type         TEXT NOT NULL DEFAULT '',
			time_automation   TEXT NOT NULL DEFAULT '',
			log_type          TEXT NOT NULL DEFAULT 'Main Task',
			rework_count      INTEGER NOT NULL DEFAULT 0,
			rework_start_time TIMESTAMPTZ,
			rework_history    JSONB NOT NULL DEFAULT '[]',
			version           BIGINT NOT NULL DEFAULT 1,
			created_at        TIMESTAMPTZ DEFAULT NOW(),
			updated_at        TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_work_logs_employee_date ON work_logs(employee_id, date)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_work_logs_task ON work_logs(task_id, created_at DESC) WHERE task_id != ''`)
	return err
}

func (s *WorkLogPgStore) Create(ctx context.Context, w *models.WorkLog) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	w.Version = 1
	now := time.Now().Truncate(time.Microsecond)
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	history, err := json.Marshal(nonNilHistory(w.ReworkHistory))
	if err != nil {
		return fmt.Errorf("marshal rework history: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO work_logs (`+workLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21::jsonb, $22, $23, $24)`,
		w.ID, w.EmployeeID, w.TaskID, w.TaskTitle, w.ProjectName, w.Date, w.StartTime, w.EndTime,
		w.Duration, w.DurationMinutes, w.Description, w.Status, w.TaskNo, w.TaskOwner, w.AssignedBy, w.TaskType,
		w.TimeAutomation, w.LogType, w.ReworkCount, w.ReworkStartTime, string(history), w.Version, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create work log: %w", err)
	}
	return nil
}

func (s *WorkLogPgStore) Get(ctx context.Context, id string) (*models.WorkLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workLogColumns+` FROM work_logs WHERE id = $1`, id)
	w, err := scanWorkLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get work log %s: %w", id, err)
	}
	return w, nil
}

// Update writes every mutable column when the stored version still matches.
func (s *WorkLogPgStore) Update(ctx context.Context, w *models.WorkLog) error {
	history, err := json.Marshal(nonNilHistory(w.ReworkHistory))
	if err != nil {
		return fmt.Errorf("marshal rework history: %w", err)
	}
	now := time.Now().Truncate(time.Microsecond)
	tag, err := s.pool.Exec(ctx, `
		UPDATE work_logs SET
			end_time = $1, duration = $2, duration_minutes = $3, status = $4, rework_count = $5,
			rework_start_time = $6, rework_history = $7::jsonb, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10`,
		w.EndTime, w.Duration, w.DurationMinutes, w.Status, w.ReworkCount,
		w.ReworkStartTime, string(history), now, w.ID, w.Version)
	if err != nil {
		return fmt.Errorf("update work log %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM work_logs WHERE id = $1)`, w.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check work log %s: %w", w.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	w.Version++
	w.UpdatedAt = now
	return nil
}

func (s *WorkLogPgStore) LatestForTask(ctx context.Context, taskID, logType string) (*models.WorkLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workLogColumns+` FROM work_logs
		WHERE task_id = $1 AND ($2 = '' OR log_type = $2)
		ORDER BY created_at DESC, id DESC LIMIT 1`, taskID, logType)
	w, err := scanWorkLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest work log for task %s: %w", taskID, err)
	}
	return w, nil
}

func (s *WorkLogPgStore) ListByEmployee(ctx context.Context, employeeID string) ([]*models.WorkLog, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+workLogColumns+` FROM work_logs
		WHERE employee_id = $1 ORDER BY created_at DESC, id DESC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.WorkLog
	for rows.Next() {
		w, err := scanWorkLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return logs, nil
}

func (s *WorkLogPgStore) CountForDay(ctx context.Context, employeeID, date string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_logs WHERE employee_id = $1 AND date = $2`,
		employeeID, date).Scan(&n)
	return n, err
}

func scanWorkLog(row pgx.Row) (*models.WorkLog, error) {
	var w models.WorkLog
	var history []byte
	err := row.Scan(&w.ID, &w.EmployeeID, &w.TaskID, &w.TaskTitle, &w.ProjectName, &w.Date, &w.StartTime, &w.EndTime,
		&w.Duration, &w.DurationMinutes, &w.Description, &w.Status, &w.TaskNo, &w.TaskOwner, &w.AssignedBy, &w.TaskType,
		&w.TimeAutomation, &w.LogType, &w.ReworkCount, &w.ReworkStartTime, &history, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &w.ReworkHistory); err != nil {
		w.ReworkHistory = nil
	}
	return &w, nil
}

func nonNilHistory(h []models.ReworkEntry) []models.ReworkEntry {
	if h == nil {
		return []models.ReworkEntry{}
	}
	return h
}
