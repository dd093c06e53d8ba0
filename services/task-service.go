package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/repositories"
)

// TaskChannelProvisioner creates or joins the discussion channel of a task.
type TaskChannelProvisioner interface {
	ProvisionTaskChannel(ctx context.Context, task *models.Task, userID string) (*models.Channel, error)
}

type TaskService struct {
	tasks    repositories.TaskRepository
	workLogs repositories.WorkLogRepository
	users    repositories.UserDirectory
	notifier Notifier
	channels TaskChannelProvisioner
	ledger   *ReworkLedger
	aliases  *DepartmentAliases
	retry    RetryPolicy
	now      func() time.Time
}

type TaskOption func(*TaskService)

func WithChannelProvisioner(p TaskChannelProvisioner) TaskOption {
	return func(s *TaskService) { s.channels = p }
}

func WithReworkLedger(l *ReworkLedger) TaskOption {
	return func(s *TaskService) { s.ledger = l }
}

func WithAliases(a *DepartmentAliases) TaskOption {
	return func(s *TaskService) { s.aliases = a }
}

func WithRetryPolicy(p RetryPolicy) TaskOption {
	return func(s *TaskService) { s.retry = p }
}

func WithClock(now func() time.Time) TaskOption {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(tasks repositories.TaskRepository, workLogs repositories.WorkLogRepository,
	users repositories.UserDirectory, notifier Notifier, opts ...TaskOption) *TaskService {
	s := &TaskService{
		tasks:    tasks,
		workLogs: workLogs,
		users:    users,
		notifier: notifier,
		aliases:  DefaultDepartmentAliases(),
		retry:    DefaultRetryPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errNoChange tells mutate the loaded task is already in the wanted state.
var errNoChange = errors.New("no change")

// mutate loads the task, applies fn and writes it back with a version check,
// retrying on lost races. fn runs against a fresh copy on every attempt.
func (s *TaskService) mutate(ctx context.Context, id string, fn func(t *models.Task) error) (*models.Task, error) {
	var result *models.Task
	err := retryOnConflict(ctx, s.retry, func() error {
		t, err := s.tasks.Get(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			if errors.Is(err, errNoChange) {
				result = t
				return nil
			}
			return err
		}
		t.UpdatedAt = s.now()
		if err := s.tasks.Update(ctx, t); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TaskService) emit(event string, payload any) {
	if s.notifier != nil {
		s.notifier.Emit(event, payload)
	}
}

func (s *TaskService) CreateTask(ctx context.Context, spec models.Task) (*models.Task, error) {
	spec.ProjectName = strings.TrimSpace(spec.ProjectName)
	spec.TaskTitle = strings.TrimSpace(spec.TaskTitle)
	if spec.ProjectName == "" || spec.TaskTitle == "" || strings.TrimSpace(spec.Description) == "" {
		return nil, fmt.Errorf("%w: projectName, taskTitle and description are required", ErrValidation)
	}
	if spec.AssignType == "" {
		spec.AssignType = models.AssignSingle
	}
	if !spec.AssignType.Valid() {
		return nil, fmt.Errorf("%w: unknown assign type %q", ErrValidation, spec.AssignType)
	}
	switch spec.Priority {
	case "":
		spec.Priority = models.PriorityMedium
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, spec.Priority)
	}

	spec.Roles = cleanList(spec.Roles)
	spec.Department = cleanList(spec.Department)
	spec.ProjectLead = cleanList(spec.ProjectLead)
	spec.TeamLead = cleanValue(spec.TeamLead)
	spec.AssignedBy = cleanValue(spec.AssignedBy)

	switch spec.AssignType {
	case models.AssignSingle, models.AssignDepartment:
		spec.Assignee = cleanList(spec.Assignee)
		if len(spec.Assignee) == 0 {
			return nil, fmt.Errorf("%w: %s tasks need at least one assignee", ErrValidation, spec.AssignType)
		}
	case models.AssignProjectWise:
		spec.Assignee = []string{}
		if len(spec.Roles) == 0 {
			return nil, fmt.Errorf("%w: project-wise tasks need at least one role", ErrValidation)
		}
	case models.AssignOverall:
		spec.Assignee = []string{}
	}

	now := s.now()
	task := spec
	task.ID = ""
	task.Status = models.StatusPending
	task.AssignedTo = []string{}
	task.DeclinedBy = []models.Decline{}
	task.Sessions = []models.Session{}
	task.ReworkCount = 0
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.tasks.Insert(ctx, &task); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateTask
		}
		return nil, fmt.Errorf("failed to create task: %v", err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s (%s) created for %s", task.ID, task.TaskTitle, task.AssignType)
	s.emit(models.EventNewInvitation, task.Clone())
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (s *TaskService) ListAllTasks(ctx context.Context) ([]*models.Task, error) {
	return s.tasks.ListByStatus(ctx)
}

// ListInvitations returns the open tasks currently offered to the user.
func (s *TaskService) ListInvitations(ctx context.Context, userID string) ([]*models.Task, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	open, err := s.tasks.ListByStatus(ctx, models.StatusPending, models.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	invitations := []*models.Task{}
	for _, t := range open {
		if IsInvited(t, user, s.aliases) {
			invitations = append(invitations, t)
		}
	}
	return invitations, nil
}

// ListMyTasks returns the tasks the user accepted that have left Pending.
func (s *TaskService) ListMyTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.tasks.ListByAssignee(ctx, userID,
		models.StatusInProgress, models.StatusCompleted, models.StatusOverdue, models.StatusHold)
}

func (s *TaskService) ListTasksByEmployee(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.tasks.ListByAssignee(ctx, userID)
}

func (s *TaskService) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	return s.tasks.Stats(ctx)
}

func (s *TaskService) RespondToInvitation(ctx context.Context, taskID, userID string, decision models.Decision, reason string) (*models.Task, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	switch decision {
	case models.DecisionAccept:
		return s.accept(ctx, taskID, userID)
	case models.DecisionDecline:
		return s.decline(ctx, taskID, userID, reason)
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return nil, ErrInvalidDecision
}

func (s *TaskService) accept(ctx context.Context, taskID, userID string) (*models.Task, error) {
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		changed := false
		if !t.IsAssigned(userID) {
			t.AssignedTo = append(t.AssignedTo, userID)
			changed = true
		}
		if t.Status != models.StatusInProgress {
			t.Status = models.StatusInProgress
			changed = true
		}
		if t.OpenSession() < 0 {
			t.Sessions = append(t.Sessions, models.Session{
				StartTime:     s.now(),
				Status:        models.StatusInProgress,
				ReworkVersion: t.ReworkCount,
			})
			changed = true
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_ACCEPTED, Description: User %s accepted task %s", userID, taskID)

	if s.channels != nil {
		if _, err := s.channels.ProvisionTaskChannel(ctx, task, userID); err != nil {
			logging.Logger.Warnf("Event ID: TASK_CHANNEL_FAILED, Description: Could not provision channel for task %s: %v", taskID, err)
		}
	}

	s.emit(models.EventTaskAccepted, map[string]any{
		"taskId":       task.ID,
		"taskTitle":    task.TaskTitle,
		"employeeId":   userID,
		"employeeName": s.userName(ctx, userID),
	})
	return task, nil
}

func (s *TaskService) decline(ctx context.Context, taskID, userID, reason string) (*models.Task, error) {
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		t.DeclinedBy = append(t.DeclinedBy, models.Decline{UserID: userID, Reason: reason, Date: s.now()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_DECLINED, Description: User %s declined task %s", userID, taskID)
	s.emit(models.EventTaskDeclined, map[string]any{
		"taskId":       task.ID,
		"taskTitle":    task.TaskTitle,
		"employeeId":   userID,
		"employeeName": s.userName(ctx, userID),
		"reason":       reason,
	})
	return task, nil
}

// closeOpenSession ends the running session, if any, and returns a copy of it.
func (s *TaskService) closeOpenSession(t *models.Task) *models.Session {
	idx := t.OpenSession()
	if idx < 0 {
		return nil
	}
	end := s.now()
	sess := &t.Sessions[idx]
	sess.EndTime = &end
	sess.DurationMs = end.Sub(sess.StartTime).Milliseconds()
	closed := *sess
	return &closed
}

func (s *TaskService) openSession(t *models.Task) {
	t.Sessions = append(t.Sessions, models.Session{
		StartTime:     s.now(),
		Status:        models.StatusInProgress,
		ReworkVersion: t.ReworkCount,
	})
}

// UpdateStatus moves a working task to In Progress, Hold or Completed,
// closing the running session and logging the time worked.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, actingUserID string) (*models.Task, error) {
	switch status {
	case models.StatusInProgress, models.StatusCompleted, models.StatusHold:
	default:
		return nil, ErrInvalidStatus
	}

	var closed *models.Session
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		closed = s.closeOpenSession(t)
		if status == models.StatusInProgress {
			s.openSession(t)
		}
		t.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_STATUS_UPDATED, Description: Task %s moved to %s", taskID, status)

	if closed != nil {
		s.logSession(ctx, task, closed, actingUserID)
	}
	if s.ledger != nil && task.ReworkCount > 0 {
		if err := s.ledger.FollowTaskStatus(ctx, task, status); err != nil {
			logging.Logger.Warnf("Event ID: REWORK_FOLLOW_FAILED, Description: Rework log for task %s not updated: %v", taskID, err)
		}
	}

	s.emit(models.EventTaskUpdated, task.Clone())
	return task, nil
}

// TriggerRework reopens a task for another round of work.
func (s *TaskService) TriggerRework(ctx context.Context, taskID string) (*models.Task, error) {
	var closed *models.Session
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		closed = s.closeOpenSession(t)
		t.ReworkCount++
		t.Status = models.StatusInProgress
		s.openSession(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_REWORK, Description: Task %s sent to rework #%d", taskID, task.ReworkCount)

	if closed != nil {
		s.logSession(ctx, task, closed, "")
	}
	if s.ledger != nil {
		if _, err := s.ledger.BeginForTask(ctx, task); err != nil {
			logging.Logger.Warnf("Event ID: REWORK_BEGIN_FAILED, Description: Rework log for task %s not opened: %v", taskID, err)
		}
	}

	s.emit(models.EventTaskRework, task.Clone())
	return task, nil
}

// MarkOverdue is the scheduler entry point for tasks past their deadline.
func (s *TaskService) MarkOverdue(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.mutate(ctx, taskID, func(t *models.Task) error {
		switch t.Status {
		case models.StatusOverdue:
			return errNoChange
		case models.StatusCompleted:
			return ErrInvalidStatus
		}
		t.Status = models.StatusOverdue
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(models.EventTaskUpdated, task.Clone())
	return task, nil
}

func (s *TaskService) UpdateChatTopic(ctx context.Context, taskID, topic string) (*models.Task, error) {
	return s.mutate(ctx, taskID, func(t *models.Task) error {
		if t.ChatTopic == topic {
			return errNoChange
		}
		t.ChatTopic = topic
		return nil
	})
}

// logSession writes the work log for a closed session. Failures are logged
// and never reach the caller.
func (s *TaskService) logSession(ctx context.Context, task *models.Task, sess *models.Session, actingUserID string) {
	if s.workLogs == nil {
		return
	}
	employeeID := actingUserID
	if employeeID == "" && len(task.AssignedTo) > 0 {
		employeeID = task.AssignedTo[0]
	}
	if employeeID == "" {
		logging.Logger.Debugf("Event ID: WORKLOG_SKIPPED, Description: No employee to log session of task %s", task.ID)
		return
	}

	end := *sess.EndTime
	date := end.Format("2006-01-02")
	taskNo := 1
	if n, err := s.workLogs.CountForDay(ctx, employeeID, date); err == nil {
		taskNo = n + 1
	}

	mins := int(sess.DurationMs / 60000)
	description := task.Description
	if description == "" {
		description = "Auto-logged task session"
	}
	assigner := "System"
	if task.AssignedBy != "" {
		assigner = s.userName(ctx, task.AssignedBy)
	}

	now := s.now()
	w := &models.WorkLog{
		EmployeeID:      employeeID,
		TaskID:          task.ID,
		TaskTitle:       task.TaskTitle,
		ProjectName:     task.ProjectName,
		Date:            date,
		StartTime:       sess.StartTime.Format("15:04"),
		EndTime:         end.Format("15:04"),
		Duration:        FormatDuration(mins),
		DurationMinutes: mins,
		Description:     description,
		Status:          string(task.Status),
		TaskNo:          taskNo,
		TaskOwner:       s.userName(ctx, employeeID),
		AssignedBy:      assigner,
		TaskType:        "Task",
		TimeAutomation:  FormatDuration(mins),
		LogType:         models.LogTypeMainTask,
		ReworkCount:     task.ReworkCount,
		ReworkHistory:   []models.ReworkEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.workLogs.Create(ctx, w); err != nil {
		logging.Logger.Warnf("Event ID: WORKLOG_FAILED, Description: Session of task %s not logged: %v", task.ID, err)
		return
	}
	s.emit(models.EventWorkLogCreated, w.Clone())
}

func (s *TaskService) lookupUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %v", id, err)
	}
	return u, nil
}

func (s *TaskService) userName(ctx context.Context, id string) string {
	if s.users == nil {
		return "Unknown Employee"
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil || u.Name == "" {
		return "Unknown Employee"
	}
	return u.Name
}
