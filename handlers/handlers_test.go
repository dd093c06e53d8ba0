package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskhub/models"
	"taskhub/repositories"
	"taskhub/services"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := repositories.NewMemoryDirectory(
		models.User{ID: "admin1", Name: "Admin", Roles: []string{models.RoleAdmin}},
		models.User{ID: "u1", Name: "Una", Roles: []string{"Designer"}},
	)
	tasks := repositories.NewMemoryTaskRepo()
	channels := repositories.NewMemoryChannelRepo()
	logs := repositories.NewMemoryWorkLogRepo()
	notifier := services.NewBroadcaster()
	retry := services.DefaultRetryPolicy()

	channelService := services.NewChannelService(channels, dir, notifier, services.DefaultSyncPolicy(), retry)
	ledger := services.NewReworkLedger(logs, notifier, retry, nil)
	taskService := services.NewTaskService(tasks, logs, dir, notifier,
		services.WithChannelProvisioner(channelService),
		services.WithReworkLedger(ledger),
	)
	return EnableCORS(NewRouter(NewTaskHandler(taskService), NewChannelHandler(channelService), NewWorkLogHandler(ledger)))
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/tasks", map[string]any{
		"projectName": "Website", "taskTitle": "Hero image", "description": "Draw it",
		"assignType": "Department", "assignee": []string{"Designer"}, "department": []string{"Designer"},
	}, "User-ID", "admin1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var task models.Task
	json.NewDecoder(rec.Body).Decode(&task)
	if task.AssignedBy != "admin1" {
		t.Errorf("assignedBy = %q", task.AssignedBy)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks/my-invitations?userId=u1", nil)
	var invitations []models.Task
	json.NewDecoder(rec.Body).Decode(&invitations)
	if rec.Code != http.StatusOK || len(invitations) != 1 {
		t.Fatalf("invitations: %d, %d items", rec.Code, len(invitations))
	}

	rec = do(t, h, http.MethodPost, "/api/tasks/"+task.ID+"/respond", map[string]string{"userId": "u1", "status": "Accepted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPut, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "Hold", "userId": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/work-logs/employee/u1", nil)
	var logs []models.WorkLog
	json.NewDecoder(rec.Body).Decode(&logs)
	if len(logs) != 1 {
		t.Errorf("expected one work log, got %d", len(logs))
	}

	rec = do(t, h, http.MethodGet, "/api/channels/task/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("task channel: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks/stats", nil)
	var stats models.DashboardStats
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.TotalTasks != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestRouter(t)
	create := map[string]any{"projectName": "P", "taskTitle": "T", "description": "d", "assignType": "Overall"}
	if rec := do(t, h, http.MethodPost, "/api/tasks", create); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"duplicate", http.MethodPost, "/api/tasks", create, http.StatusConflict},
		{"validation", http.MethodPost, "/api/tasks", map[string]string{"taskTitle": "x"}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/tasks", "not an object", http.StatusBadRequest},
		{"unknown task", http.MethodGet, "/api/tasks/nope", nil, http.StatusNotFound},
		{"bad status", http.MethodPut, "/api/tasks/nope/status", map[string]string{"status": "Overdue"}, http.StatusBadRequest},
		{"bad decision", http.MethodPost, "/api/tasks/nope/respond", map[string]string{"userId": "u1", "status": "Maybe"}, http.StatusNotFound},
		{"missing user", http.MethodGet, "/api/tasks/my-invitations", nil, http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/api/tasks/my-invitations?userId=ghost", nil, http.StatusNotFound},
		{"unknown work log", http.MethodPut, "/api/work-logs/nope/rework", map[string]string{"action": "Hold"}, http.StatusNotFound},
		{"unknown channel", http.MethodDelete, "/api/channels/nope", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, h, tc.method, tc.path, tc.body); rec.Code != tc.want {
				t.Errorf("%s %s = %d, want %d (%s)", tc.method, tc.path, rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestChannelRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/channels/sync", nil)
	var report services.SyncReport
	json.NewDecoder(rec.Body).Decode(&report)
	if rec.Code != http.StatusOK || report.Created != 1 {
		t.Fatalf("sync: %d %+v", rec.Code, report)
	}

	rec = do(t, h, http.MethodPost, "/api/channels", map[string]any{"type": "DM", "targetUserId": "admin1"}, "User-ID", "u1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("dm: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodPost, "/api/channels", map[string]any{"type": "DM", "targetUserId": "u1"}, "User-ID", "admin1")
	if rec.Code != http.StatusOK {
		t.Errorf("existing dm: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/channels", nil, "User-ID", "u1")
	var channels []models.Channel
	json.NewDecoder(rec.Body).Decode(&channels)
	if len(channels) != 2 {
		t.Errorf("u1 sees %d channels, want department + dm", len(channels))
	}

	rec = do(t, h, http.MethodOptions, "/api/channels", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d", rec.Code)
	}
}
