package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/repositories"
)

// ReworkLedger keeps the rework history of work logs. Each log holds an
// ordered list of rework entries; only the last one may be active.
type ReworkLedger struct {
	logs     repositories.WorkLogRepository
	notifier Notifier
	retry    RetryPolicy
	now      func() time.Time
}

func NewReworkLedger(logs repositories.WorkLogRepository, notifier Notifier, retry RetryPolicy, now func() time.Time) *ReworkLedger {
	if now == nil {
		now = time.Now
	}
	return &ReworkLedger{logs: logs, notifier: notifier, retry: retry, now: now}
}

func (l *ReworkLedger) GetWorkLog(ctx context.Context, id string) (*models.WorkLog, error) {
	w, err := l.logs.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrWorkLogNotFound
	}
	return w, err
}

func (l *ReworkLedger) ListWorkLogs(ctx context.Context, employeeID string) ([]*models.WorkLog, error) {
	return l.logs.ListByEmployee(ctx, employeeID)
}

// Apply records one rework action on a log. Actions that do not fit the
// current state of the active entry leave the log untouched.
func (l *ReworkLedger) Apply(ctx context.Context, logID string, action models.ReworkAction) (*models.WorkLog, error) {
	switch action {
	case models.ActionRework, models.ActionHold, models.ActionResume, models.ActionComplete:
	default:
		return nil, fmt.Errorf("%w: unknown rework action %q", ErrInvalidTransition, action)
	}

	var result *models.WorkLog
	err := retryOnConflict(ctx, l.retry, func() error {
		w, err := l.GetWorkLog(ctx, logID)
		if err != nil {
			return err
		}
		if !applyRework(w, action, l.now()) {
			result = w
			return nil
		}
		if err := l.logs.Update(ctx, w); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrWorkLogNotFound
			}
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyRework mutates w in place and reports whether anything changed.
func applyRework(w *models.WorkLog, action models.ReworkAction, now time.Time) bool {
	idx := w.ActiveRework()
	switch action {
	case models.ActionRework:
		if idx >= 0 {
			return false
		}
		start := now
		w.ReworkHistory = append(w.ReworkHistory, models.ReworkEntry{StartTime: now, Events: []models.ReworkEvent{}})
		w.ReworkCount++
		w.ReworkStartTime = &start
		w.Status = string(models.ActionRework)
		return true

	case models.ActionHold:
		if idx < 0 || w.ReworkHistory[idx].Held() {
			return false
		}
		e := &w.ReworkHistory[idx]
		e.Events = append(e.Events, models.ReworkEvent{Action: models.ActionHold, Time: now})
		w.Status = string(models.StatusHold)
		return true

	case models.ActionResume:
		if idx < 0 || !w.ReworkHistory[idx].Held() {
			return false
		}
		e := &w.ReworkHistory[idx]
		e.Events = append(e.Events, models.ReworkEvent{Action: models.ActionResume, Time: now})
		w.Status = string(models.StatusInProgress)
		return true

	case models.ActionComplete:
		if idx < 0 {
			return false
		}
		e := &w.ReworkHistory[idx]
		end := now
		mins := int(ActiveDuration(*e, end) / time.Minute)
		e.EndTime = &end
		e.Duration = mins

		base := w.DurationMinutes
		if base == 0 {
			base = ParseDuration(w.Duration)
		}
		w.DurationMinutes = base + mins
		w.Duration = FormatDuration(w.DurationMinutes)
		w.Status = string(models.StatusCompleted)
		return true
	}
	return false
}

// ActiveDuration is the working time of a rework entry up to end, with held
// intervals removed. An entry still held at end stops counting at its last
// Hold.
func ActiveDuration(e models.ReworkEntry, end time.Time) time.Duration {
	var active time.Duration
	lastStart := e.StartTime
	held := false
	for _, ev := range e.Events {
		switch {
		case ev.Action == models.ActionHold && !held:
			active += ev.Time.Sub(lastStart)
			held = true
		case ev.Action == models.ActionResume && held:
			lastStart = ev.Time
			held = false
		}
	}
	if !held {
		active += end.Sub(lastStart)
	}
	if active < 0 {
		return 0
	}
	return active
}

// BeginForTask opens a rework entry on the task's rework log, creating the
// log on first rework.
func (l *ReworkLedger) BeginForTask(ctx context.Context, task *models.Task) (*models.WorkLog, error) {
	w, err := l.logs.LatestForTask(ctx, task.ID, models.LogTypeRework)
	if errors.Is(err, repositories.ErrNotFound) {
		now := l.now()
		w = &models.WorkLog{
			EmployeeID:    reworkOwner(task),
			TaskID:        task.ID,
			TaskTitle:     task.TaskTitle,
			ProjectName:   task.ProjectName,
			Date:          now.Format("2006-01-02"),
			StartTime:     now.Format("15:04"),
			Description:   task.Description,
			Status:        string(models.ActionRework),
			AssignedBy:    task.AssignedBy,
			TaskType:      "Task",
			LogType:       models.LogTypeRework,
			ReworkHistory: []models.ReworkEntry{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := l.logs.Create(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to create rework log: %v", err)
		}
		if l.notifier != nil {
			l.notifier.Emit(models.EventWorkLogCreated, w.Clone())
		}
	} else if err != nil {
		return nil, err
	}
	return l.Apply(ctx, w.ID, models.ActionRework)
}

// FollowTaskStatus mirrors a task status change onto the task's active
// rework entry, if there is one.
func (l *ReworkLedger) FollowTaskStatus(ctx context.Context, task *models.Task, status models.TaskStatus) error {
	var action models.ReworkAction
	switch status {
	case models.StatusHold:
		action = models.ActionHold
	case models.StatusInProgress:
		action = models.ActionResume
	case models.StatusCompleted:
		action = models.ActionComplete
	default:
		return nil
	}

	w, err := l.logs.LatestForTask(ctx, task.ID, models.LogTypeRework)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if w.ActiveRework() < 0 {
		return nil
	}
	if _, err := l.Apply(ctx, w.ID, action); err != nil {
		return err
	}
	logging.Logger.Debugf("Event ID: REWORK_FOLLOWED, Description: Rework log %s recorded %s for task %s", w.ID, action, task.ID)
	return nil
}

func reworkOwner(task *models.Task) string {
	if len(task.AssignedTo) > 0 {
		return task.AssignedTo[0]
	}
	return task.AssignedBy
}
