package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskhub/models"
)

// MemoryTaskRepo is an in-process TaskRepository with the same
// compare-and-swap semantics as the Mongo store.
type MemoryTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[string]*models.Task)}
}

func (r *MemoryTaskRepo) Insert(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tasks {
		if existing.ProjectName == t.ProjectName && existing.TaskTitle == t.TaskTitle &&
			existing.Status != models.StatusCompleted {
			return ErrDuplicate
		}
	}
	if t.ID == "" {
		t.ID = NewID()
	}
	t.Version = 1
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *MemoryTaskRepo) Get(_ context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (r *MemoryTaskRepo) Update(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != t.Version {
		return ErrVersionConflict
	}
	t.Version++
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *MemoryTaskRepo) ListByStatus(_ context.Context, statuses ...models.TaskStatus) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for _, t := range r.tasks {
		if statusIn(t.Status, statuses) {
			out = append(out, t.Clone())
		}
	}
	sortTasks(out)
	return out, nil
}

func (r *MemoryTaskRepo) ListByAssignee(_ context.Context, userID string, statuses ...models.TaskStatus) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for _, t := range r.tasks {
		if t.IsAssigned(userID) && statusIn(t.Status, statuses) {
			out = append(out, t.Clone())
		}
	}
	sortTasks(out)
	return out, nil
}

func (r *MemoryTaskRepo) Stats(_ context.Context) (models.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	projects := make(map[string]struct{})
	var stats models.DashboardStats
	for _, t := range r.tasks {
		projects[t.ProjectName] = struct{}{}
		stats.TotalTasks++
		switch t.Status {
		case models.StatusPending:
			stats.PendingTasks++
		case models.StatusInProgress:
			stats.ActiveTasks++
		}
	}
	stats.TotalProjects = len(projects)
	return stats, nil
}

// newest first, id as tiebreak
func sortTasks(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
}

// MemoryChannelRepo is an in-process ChannelRepository. Writes counts every
// successful create or update.
type MemoryChannelRepo struct {
	mu       sync.Mutex
	channels map[string]*models.Channel
	writes   int
}

func NewMemoryChannelRepo() *MemoryChannelRepo {
	return &MemoryChannelRepo{channels: make(map[string]*models.Channel)}
}

func (r *MemoryChannelRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *MemoryChannelRepo) Get(_ context.Context, id string) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ch.Clone(), nil
}

func (r *MemoryChannelRepo) findLocked(match func(*models.Channel) bool) (*models.Channel, error) {
	for _, ch := range r.channels {
		if match(ch) {
			return ch.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryChannelRepo) FindByKey(_ context.Context, key string) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(ch *models.Channel) bool { return ch.SyncKey == key })
}

func (r *MemoryChannelRepo) FindByTaskID(_ context.Context, taskID string) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(ch *models.Channel) bool { return ch.TaskID == taskID })
}

func (r *MemoryChannelRepo) FindDM(_ context.Context, userA, userB string) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(ch *models.Channel) bool {
		return ch.Type == models.ChannelDM && ch.HasMember(userA) && ch.HasMember(userB)
	})
}

func (r *MemoryChannelRepo) FindOrCreate(_ context.Context, ch *models.Channel) (*models.Channel, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, err := r.findLocked(func(c *models.Channel) bool { return c.SyncKey == ch.SyncKey }); err == nil {
		return existing, false, nil
	}
	r.insertLocked(ch)
	return ch.Clone(), true, nil
}

func (r *MemoryChannelRepo) Create(_ context.Context, ch *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch.SyncKey != "" {
		if _, err := r.findLocked(func(c *models.Channel) bool { return c.SyncKey == ch.SyncKey }); err == nil {
			return ErrDuplicate
		}
	}
	r.insertLocked(ch)
	return nil
}

func (r *MemoryChannelRepo) insertLocked(ch *models.Channel) {
	if ch.ID == "" {
		ch.ID = NewID()
	}
	now := time.Now()
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = now
	ch.Version = 1
	r.channels[ch.ID] = ch.Clone()
	r.writes++
}

func (r *MemoryChannelRepo) Update(_ context.Context, ch *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.channels[ch.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ch.Version {
		return ErrVersionConflict
	}
	ch.Version++
	ch.UpdatedAt = time.Now()
	r.channels[ch.ID] = ch.Clone()
	r.writes++
	return nil
}

func (r *MemoryChannelRepo) Delete(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return 0, ErrNotFound
	}
	delete(r.channels, id)
	n := 1
	for cid, ch := range r.channels {
		if ch.Parent == id {
			delete(r.channels, cid)
			n++
		}
	}
	return n, nil
}

func (r *MemoryChannelRepo) List(_ context.Context) ([]*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.Clone())
	}
	sortChannels(out)
	return out, nil
}

func (r *MemoryChannelRepo) ListForUser(_ context.Context, userID string) ([]*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Channel
	for _, ch := range r.channels {
		if ch.Type == models.ChannelGlobal || ch.HasMember(userID) {
			out = append(out, ch.Clone())
		}
	}
	sortChannels(out)
	return out, nil
}

// oldest first, matching the channel list order clients expect
func sortChannels(chs []*models.Channel) {
	sort.Slice(chs, func(i, j int) bool {
		if !chs[i].CreatedAt.Equal(chs[j].CreatedAt) {
			return chs[i].CreatedAt.Before(chs[j].CreatedAt)
		}
		return chs[i].ID < chs[j].ID
	})
}

type MemoryWorkLogRepo struct {
	mu   sync.Mutex
	logs map[string]*models.WorkLog
}

func NewMemoryWorkLogRepo() *MemoryWorkLogRepo {
	return &MemoryWorkLogRepo{logs: make(map[string]*models.WorkLog)}
}

func (r *MemoryWorkLogRepo) Create(_ context.Context, w *models.WorkLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == "" {
		w.ID = NewID()
	}
	w.Version = 1
	r.logs[w.ID] = w.Clone()
	return nil
}

func (r *MemoryWorkLogRepo) Get(_ context.Context, id string) (*models.WorkLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w.Clone(), nil
}

func (r *MemoryWorkLogRepo) Update(_ context.Context, w *models.WorkLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.logs[w.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != w.Version {
		return ErrVersionConflict
	}
	w.Version++
	r.logs[w.ID] = w.Clone()
	return nil
}

func (r *MemoryWorkLogRepo) LatestForTask(_ context.Context, taskID, logType string) (*models.WorkLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.WorkLog
	for _, w := range r.logs {
		if w.TaskID != taskID || (logType != "" && w.LogType != logType) {
			continue
		}
		if latest == nil || w.CreatedAt.After(latest.CreatedAt) ||
			(w.CreatedAt.Equal(latest.CreatedAt) && w.ID > latest.ID) {
			latest = w
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.Clone(), nil
}

func (r *MemoryWorkLogRepo) ListByEmployee(_ context.Context, employeeID string) ([]*models.WorkLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WorkLog
	for _, w := range r.logs {
		if w.EmployeeID == employeeID {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryWorkLogRepo) CountForDay(_ context.Context, employeeID, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.logs {
		if w.EmployeeID == employeeID && w.Date == date {
			n++
		}
	}
	return n, nil
}

// MemoryDirectory serves a fixed roster; Put replaces or adds a user.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string
}

func NewMemoryDirectory(users ...models.User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]models.User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *MemoryDirectory) Put(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[u.ID]; !ok {
		d.order = append(d.order, u.ID)
	}
	u.Roles = append([]string(nil), u.Roles...)
	d.users[u.ID] = u
}

func (d *MemoryDirectory) GetUser(_ context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) ListUsers(_ context.Context) ([]models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.User, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.users[id])
	}
	return out, nil
}

func (d *MemoryDirectory) ListUsersByDepartment(ctx context.Context, tag string) ([]string, error) {
	return d.ListUsersByRoles(ctx, tag)
}

func (d *MemoryDirectory) ListUsersByRoles(_ context.Context, roles ...string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, id := range d.order {
		u := d.users[id]
		if u.HasAnyRole(roles...) {
			out = append(out, id)
		}
	}
	return out, nil
}
