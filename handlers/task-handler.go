package handlers

import (
	"net/http"

	"taskhub/models"
	"taskhub/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if !decode(w, r, &task) {
		return
	}
	if task.AssignedBy == "" {
		task.AssignedBy = r.Header.Get("User-ID")
	}
	created, err := h.service.CreateTask(r.Context(), task)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListAllTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) GetInvitations(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	if id == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	tasks, err := h.service.ListInvitations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetMyTasks(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	if id == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	tasks, err := h.service.ListMyTasks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *TaskHandler) GetTasksByEmployee(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasksByEmployee(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *TaskHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type respondRequest struct {
	UserID string          `json:"userId"`
	Status models.Decision `json:"status"`
	Reason string          `json:"reason"`
}

func (h *TaskHandler) RespondToTask(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = userID(r)
	}
	task, err := h.service.RespondToInvitation(r.Context(), mux.Vars(r)["id"], req.UserID, req.Status, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type statusRequest struct {
	Status models.TaskStatus `json:"status"`
	UserID string            `json:"userId"`
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = userID(r)
	}
	task, err := h.service.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) TriggerRework(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.TriggerRework(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.MarkOverdue(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateChatTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !decode(w, r, &req) {
		return
	}
	task, err := h.service.UpdateChatTopic(r.Context(), mux.Vars(r)["id"], req.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
