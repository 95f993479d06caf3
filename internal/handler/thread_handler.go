package handler

import (
	"net/http"

	"github.com/freeeve/paxhistoria/internal/service"
)

// ThreadHandler handles diplomatic conversations.
type ThreadHandler struct {
	gameSvc *service.GameService
}

// NewThreadHandler creates a ThreadHandler.
func NewThreadHandler(gameSvc *service.GameService) *ThreadHandler {
	return &ThreadHandler{gameSvc: gameSvc}
}

type messageRequest struct {
	Participants []string `json:"participants,omitempty"`
	Content      string   `json:"content"`
}

// ListThreads handles GET /api/v1/games/{id}/threads
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.gameSvc.ListThreads(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if threads == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// OpenThread handles POST /api/v1/games/{id}/threads. The message goes to
// the thread with exactly these participants, created if needed.
func (h *ThreadHandler) OpenThread(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Participants) == 0 {
		writeError(w, http.StatusBadRequest, "participants are required")
		return
	}
	thread, err := h.gameSvc.SendMessage(r.Context(), r.PathValue("id"), "", req.Participants, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

// PostMessage handles POST /api/v1/games/{id}/threads/{threadId}/messages
func (h *ThreadHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	thread, err := h.gameSvc.SendMessage(r.Context(), r.PathValue("id"), r.PathValue("threadId"), nil, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

// MarkRead handles POST /api/v1/games/{id}/threads/{threadId}/read
func (h *ThreadHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.gameSvc.MarkThreadRead(r.Context(), r.PathValue("id"), r.PathValue("threadId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
