package handlers

import (
	"net/http"

	"taskhub/services"

	"github.com/gorilla/mux"
)

type ChannelHandler struct {
	service *services.ChannelService
}

func NewChannelHandler(service *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: service}
}

func (h *ChannelHandler) GetChannels(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	if id == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	channels, err := h.service.ListChannelsForUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(channels))
}

func (h *ChannelHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var in services.CreateChannelInput
	if !decode(w, r, &in) {
		return
	}
	ch, created, err := h.service.CreateChannel(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ch)
}

func (h *ChannelHandler) GetChannelByTask(w http.ResponseWriter, r *http.Request) {
	ch, err := h.service.GetChannelByTaskID(r.Context(), mux.Vars(r)["taskId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) SyncDepartments(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SyncDepartmentChannels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ChannelHandler) RenameChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	ch, err := h.service.RenameChannel(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type membersRequest struct {
	UserIDs []string `json:"userIds"`
}

func (h *ChannelHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	var req membersRequest
	if !decode(w, r, &req) {
		return
	}
	ch, err := h.service.AddMembers(r.Context(), mux.Vars(r)["id"], req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	var req membersRequest
	if !decode(w, r, &req) {
		return
	}
	ch, err := h.service.RemoveMembers(r.Context(), mux.Vars(r)["id"], req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteChannel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Channel deleted", "deleted": n})
}
