package handler

import (
	"net/http"

	"github.com/freeeve/paxhistoria/internal/service"
)

// ActionHandler handles the queue of player orders.
type ActionHandler struct {
	gameSvc *service.GameService
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(gameSvc *service.GameService) *ActionHandler {
	return &ActionHandler{gameSvc: gameSvc}
}

// QueueAction handles POST /api/v1/games/{id}/actions
func (h *ActionHandler) QueueAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := h.gameSvc.QueueAction(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

// RemoveAction handles DELETE /api/v1/games/{id}/actions/{actionId}
func (h *ActionHandler) RemoveAction(w http.ResponseWriter, r *http.Request) {
	if err := h.gameSvc.RemoveAction(r.Context(), r.PathValue("id"), r.PathValue("actionId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
