package services

import (
	"sync"
	"testing"
	"time"

	"taskhub/models"
	"taskhub/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordedEvent struct {
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Emit(event string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{event, payload})
	r.mu.Unlock()
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type harness struct {
	tasks    *repositories.MemoryTaskRepo
	channels *repositories.MemoryChannelRepo
	logs     *repositories.MemoryWorkLogRepo
	dir      *repositories.MemoryDirectory
	clock    *fakeClock
	events   *recorder
	ledger   *ReworkLedger
	chans    *ChannelService
	svc      *TaskService
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialInterval: time.Microsecond, MaxInterval: time.Millisecond}
}

func roster() []models.User {
	return []models.User{
		{ID: "admin1", Name: "Ana Admin", Roles: []string{models.RoleAdmin}},
		{ID: "mgr1", Name: "Marko Manager", Roles: []string{models.RoleManager}},
		{ID: "u1", Name: "Una", Roles: []string{"Designer"}},
		{ID: "u2", Name: "Uros", Roles: []string{"Software Developer"}},
		{ID: "u3", Name: "Vera", Roles: []string{"Developer", models.RoleUser}},
		{ID: "u4", Name: "Sava", Roles: []string{"Sales Executive"}},
	}
}

func newHarness(t *testing.T, users ...models.User) *harness {
	t.Helper()
	if len(users) == 0 {
		users = roster()
	}
	h := &harness{
		tasks:    repositories.NewMemoryTaskRepo(),
		channels: repositories.NewMemoryChannelRepo(),
		logs:     repositories.NewMemoryWorkLogRepo(),
		dir:      repositories.NewMemoryDirectory(users...),
		clock:    newFakeClock(),
		events:   &recorder{},
	}
	retry := fastRetry(8)
	h.ledger = NewReworkLedger(h.logs, h.events, retry, h.clock.Now)
	h.chans = NewChannelService(h.channels, h.dir, h.events, DefaultSyncPolicy(), retry)
	h.svc = NewTaskService(h.tasks, h.logs, h.dir, h.events,
		WithChannelProvisioner(h.chans),
		WithReworkLedger(h.ledger),
		WithRetryPolicy(retry),
		WithClock(h.clock.Now),
	)
	return h
}

func draftTask(title string, assignType models.AssignType, assignee ...string) models.Task {
	return models.Task{
		ProjectName: "Website",
		TaskTitle:   title,
		Description: "Do the work",
		AssignType:  assignType,
		Assignee:    assignee,
		Department:  []string{"Designer"},
		TeamLead:    "mgr1",
		AssignedBy:  "admin1",
	}
}
