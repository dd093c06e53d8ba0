package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Role, User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter registers every route. Fixed paths go before {id} patterns.
func NewRouter(tasks *TaskHandler, channels *ChannelHandler, workLogs *WorkLogHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/tasks", tasks.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks", tasks.GetAllTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/stats", tasks.GetDashboardStats).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/my-invitations", tasks.GetInvitations).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/my-tasks", tasks.GetMyTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/employee/{userId}", tasks.GetTasksByEmployee).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id}", tasks.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id}/respond", tasks.RespondToTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/status", tasks.UpdateTaskStatus).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{id}/rework", tasks.TriggerRework).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/overdue", tasks.MarkOverdue).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/chat-topic", tasks.UpdateChatTopic).Methods(http.MethodPut)

	r.HandleFunc("/api/channels", channels.GetChannels).Methods(http.MethodGet)
	r.HandleFunc("/api/channels", channels.CreateChannel).Methods(http.MethodPost)
	r.HandleFunc("/api/channels/sync", channels.SyncDepartments).Methods(http.MethodPost)
	r.HandleFunc("/api/channels/task/{taskId}", channels.GetChannelByTask).Methods(http.MethodGet)
	r.HandleFunc("/api/channels/{id}", channels.RenameChannel).Methods(http.MethodPut)
	r.HandleFunc("/api/channels/{id}", channels.DeleteChannel).Methods(http.MethodDelete)
	r.HandleFunc("/api/channels/{id}/members", channels.AddMembers).Methods(http.MethodPost)
	r.HandleFunc("/api/channels/{id}/members", channels.RemoveMembers).Methods(http.MethodDelete)

	r.HandleFunc("/api/work-logs/employee/{employeeId}", workLogs.GetEmployeeLogs).Methods(http.MethodGet)
	r.HandleFunc("/api/work-logs/{id}", workLogs.GetWorkLog).Methods(http.MethodGet)
	r.HandleFunc("/api/work-logs/{id}/rework", workLogs.ApplyRework).Methods(http.MethodPut)

	return r
}
