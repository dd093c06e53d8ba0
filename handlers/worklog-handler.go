package handlers

import (
	"net/http"

	"taskhub/models"
	"taskhub/services"

	"github.com/gorilla/mux"
)

type WorkLogHandler struct {
	ledger *services.ReworkLedger
}

func NewWorkLogHandler(ledger *services.ReworkLedger) *WorkLogHandler {
	return &WorkLogHandler{ledger: ledger}
}

func (h *WorkLogHandler) GetWorkLog(w http.ResponseWriter, r *http.Request) {
	log, err := h.ledger.GetWorkLog(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *WorkLogHandler) GetEmployeeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.ledger.ListWorkLogs(r.Context(), mux.Vars(r)["employeeId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(logs))
}

func (h *WorkLogHandler) ApplyRework(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action models.ReworkAction `json:"action"`
	}
	if !decode(w, r, &req) {
		return
	}
	log, err := h.ledger.Apply(r.Context(), mux.Vars(r)["id"], req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}
