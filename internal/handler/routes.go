package handler

import (
	"net/http"

	"github.com/freeeve/paxhistoria/internal/service"
)

// NewRouter registers every HTTP and WebSocket route.
func NewRouter(gameSvc *service.GameService, hub *Hub) *http.ServeMux {
	gameHandler := NewGameHandler(gameSvc)
	actionHandler := NewActionHandler(gameSvc)
	threadHandler := NewThreadHandler(gameSvc)
	wsHandler := NewWSHandler(hub)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := http.NewServeMux()
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("DELETE /games/{id}", gameHandler.DeleteGame)
	api.HandleFunc("GET /games/{id}/map", gameHandler.MapView)
	api.HandleFunc("GET /games/{id}/turns", gameHandler.ListTurns)
	api.HandleFunc("POST /games/{id}/turn", gameHandler.ResolveTurn)
	api.HandleFunc("POST /games/{id}/actions", actionHandler.QueueAction)
	api.HandleFunc("DELETE /games/{id}/actions/{actionId}", actionHandler.RemoveAction)
	api.HandleFunc("GET /games/{id}/threads", threadHandler.ListThreads)
	api.HandleFunc("POST /games/{id}/threads", threadHandler.OpenThread)
	api.HandleFunc("POST /games/{id}/threads/{threadId}/messages", threadHandler.PostMessage)
	api.HandleFunc("POST /games/{id}/threads/{threadId}/read", threadHandler.MarkRead)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	// WebSocket (game subscription via query param or subscribe messages)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	return mux
}
