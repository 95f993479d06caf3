package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/paxhistoria/internal/model"
	"github.com/freeeve/paxhistoria/internal/service"
	"github.com/freeeve/paxhistoria/pkg/turn"
)

// --- Mock Repositories ---

type mockGameRepo struct {
	mu     sync.Mutex
	games  map[string]*model.Game
	drafts map[string]json.RawMessage
}

func (m *mockGameRepo) Create(_ context.Context, id, playerCountry, date string, offline bool) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Game{ID: id, PlayerCountry: playerCountry, Turn: 1, Date: date, IsOffline: offline, CreatedAt: time.Now()}
	m.games[id] = g
	return g, nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGameRepo) List(_ context.Context, limit int) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Game
	for _, g := range m.games {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockGameRepo) UpdateProgress(_ context.Context, id string, turn int, date string, offline bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[id]; ok {
		g.Turn, g.Date, g.IsOffline = turn, date, offline
	}
	delete(m.drafts, id)
	return nil
}

func (m *mockGameRepo) SaveDraft(_ context.Context, id string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("game %s not found", id)
	}
	if m.drafts == nil {
		m.drafts = make(map[string]json.RawMessage)
	}
	m.drafts[id] = state
	return nil
}

func (m *mockGameRepo) LoadDraft(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[id], nil
}

func (m *mockGameRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	delete(m.games, id)
	return nil
}

type mockTurnRepo struct {
	mu    sync.Mutex
	turns map[string][]model.TurnRecord
}

func (m *mockTurnRepo) RecordTurn(_ context.Context, rec model.TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[rec.GameID] = append(m.turns[rec.GameID], rec)
	return nil
}

func (m *mockTurnRepo) ListTurns(_ context.Context, gameID string) ([]model.TurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TurnRecord(nil), m.turns[gameID]...), nil
}

func (m *mockTurnRepo) LatestState(_ context.Context, gameID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[gameID]
	if len(turns) == 0 {
		return nil, nil
	}
	return turns[len(turns)-1].StateAfter, nil
}

type mockCache struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
}

func (c *mockCache) SetGameState(_ context.Context, gameID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[gameID] = state
	return nil
}

func (c *mockCache) GetGameState(_ context.Context, gameID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[gameID], nil
}

func (c *mockCache) DeleteGameState(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	return nil
}

// --- Helpers ---

// newTestRouter wires the router over in-memory stores and an offline resolver.
func newTestRouter() (http.Handler, *Hub) {
	hub := NewHub()
	svc := service.NewGameService(
		&mockGameRepo{games: make(map[string]*model.Game)},
		&mockTurnRepo{turns: make(map[string][]model.TurnRecord)},
		&mockCache{states: make(map[string]json.RawMessage)},
		service.NewResolver(nil, service.ResolverConfig{}),
		hub,
	)
	return NewRouter(svc, hub), hub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createGame(t *testing.T, h http.Handler) turn.GameState {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/games", `{"country":"France"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var gs turn.GameState
	if err := json.Unmarshal(rec.Body.Bytes(), &gs); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	return gs
}

// --- Game Handler Tests ---

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter()
	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateGame(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)

	if gs.ID == "" || gs.Turn != 1 || gs.PlayerCountry != "France" {
		t.Errorf("unexpected game: %+v", gs)
	}
	if !gs.IsOffline {
		t.Error("expected offline opening without an oracle")
	}
	if len(gs.Events) != 1 || gs.Events[0].Title != "Début de la partie" {
		t.Errorf("expected opening event, got %+v", gs.Events)
	}
}

func TestCreateGameValidation(t *testing.T) {
	h, _ := newTestRouter()
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"bad json", "{", http.StatusBadRequest},
		{"blank country", `{"country":"  "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/api/v1/games", tt.body); rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestGetAndListGames(t *testing.T) {
	h, _ := newTestRouter()

	if rec := do(t, h, http.MethodGet, "/api/v1/games", ""); rec.Body.String() != "[]\n" {
		t.Errorf("expected empty list, got %q", rec.Body.String())
	}

	gs := createGame(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/games/"+gs.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get game: %d", rec.Code)
	}
	var got turn.GameState
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ID != gs.ID || got.IsLoading {
		t.Errorf("unexpected state: %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/games?limit=10", "")
	var games []model.Game
	json.Unmarshal(rec.Body.Bytes(), &games)
	if len(games) != 1 || games[0].ID != gs.ID {
		t.Errorf("list = %+v", games)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/games/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing game: expected 404, got %d", rec.Code)
	}
}

func TestResolveTurnFlow(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)
	base := "/api/v1/games/" + gs.ID

	rec := do(t, h, http.MethodPost, base+"/actions", `{"text":"Renforcer la ligne Maginot"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("queue action: %d %s", rec.Code, rec.Body.String())
	}
	var action turn.PlayerAction
	json.Unmarshal(rec.Body.Bytes(), &action)
	if action.ID == "" || action.Text != "Renforcer la ligne Maginot" {
		t.Errorf("action = %+v", action)
	}

	if rec := do(t, h, http.MethodPost, base+"/actions", `{"text":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty action: expected 400, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, base+"/turn", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	var next turn.GameState
	json.Unmarshal(rec.Body.Bytes(), &next)
	if next.Turn != 2 || next.Date != "1 Fev 1936" || len(next.PlannedActions) != 0 {
		t.Errorf("after resolve: turn=%d date=%q actions=%d", next.Turn, next.Date, len(next.PlannedActions))
	}

	rec = do(t, h, http.MethodGet, base+"/turns", "")
	var turns []model.TurnRecord
	json.Unmarshal(rec.Body.Bytes(), &turns)
	if len(turns) != 2 || turns[1].Orders[0] != "Renforcer la ligne Maginot" {
		t.Errorf("turns = %+v", turns)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/games/missing/turn", ""); rec.Code != http.StatusNotFound {
		t.Errorf("resolve missing: expected 404, got %d", rec.Code)
	}
}

func TestRemoveAction(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)
	base := "/api/v1/games/" + gs.ID

	rec := do(t, h, http.MethodPost, base+"/actions", `{"text":"Mobiliser"}`)
	var action turn.PlayerAction
	json.Unmarshal(rec.Body.Bytes(), &action)

	if rec := do(t, h, http.MethodDelete, base+"/actions/"+action.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("remove: expected 204, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, base+"/actions/"+action.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("remove twice: expected 404, got %d", rec.Code)
	}
}

func TestMapEndpoint(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/games/"+gs.ID+"/map", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("map: %d", rec.Code)
	}
	var markers []service.MapMarker
	json.Unmarshal(rec.Body.Bytes(), &markers)
	if len(markers) != len(gs.Entities) {
		t.Errorf("expected %d markers, got %d", len(gs.Entities), len(markers))
	}
}

func TestDeleteGameEndpoint(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)

	if rec := do(t, h, http.MethodDelete, "/api/v1/games/"+gs.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/games/"+gs.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("after delete: expected 404, got %d", rec.Code)
	}
}

// --- Thread Handler Tests ---

func TestThreadFlow(t *testing.T) {
	h, _ := newTestRouter()
	gs := createGame(t, h)
	base := "/api/v1/games/" + gs.ID

	if rec := do(t, h, http.MethodGet, base+"/threads", ""); rec.Body.String() != "[]\n" {
		t.Errorf("expected no threads, got %q", rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, base+"/threads", `{"content":"Bonjour"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("no participants: expected 400, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, base+"/threads", `{"participants":["Royaume-Uni"],"content":"Une alliance ?"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open thread: %d %s", rec.Code, rec.Body.String())
	}
	var thread turn.DiplomaticThread
	json.Unmarshal(rec.Body.Bytes(), &thread)
	if len(thread.Participants) != 1 || thread.Participants[0] != "Royaume-Uni" || len(thread.Messages) != 1 {
		t.Errorf("thread = %+v", thread)
	}

	rec = do(t, h, http.MethodPost, base+"/threads/"+thread.ID+"/messages", `{"content":"Répondez."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &thread)
	if len(thread.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(thread.Messages))
	}

	if rec := do(t, h, http.MethodPost, base+"/threads/nope/messages", `{"content":"?"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown thread: expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/threads/"+thread.ID+"/read", ""); rec.Code != http.StatusNoContent {
		t.Errorf("mark read: expected 204, got %d", rec.Code)
	}
}

// --- WebSocket broadcast through the service ---

func TestResolveTurnBroadcastsToSubscribers(t *testing.T) {
	h, hub := newTestRouter()
	gs := createGame(t, h)

	c := &WSConn{id: "watcher", send: make(chan []byte, 16)}
	hub.Register(c)
	hub.Subscribe(c, gs.ID)

	do(t, h, http.MethodPost, "/api/v1/games/"+gs.ID+"/turn", "")

	var types []string
	for len(c.send) > 0 {
		var evt WSEvent
		json.Unmarshal(<-c.send, &evt)
		types = append(types, evt.Type)
	}
	want := []string{service.EventTurnStarted, service.EventTurnResolved}
	if len(types) != len(want) || types[0] != want[0] || types[1] != want[1] {
		t.Errorf("broadcasts = %v, want %v", types, want)
	}
}
