package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/paxhistoria/internal/model"
	"github.com/freeeve/paxhistoria/internal/oracle"
)

type mockGameRepo struct {
	mu     sync.Mutex
	games  map[string]*model.Game
	drafts map[string]json.RawMessage
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{games: make(map[string]*model.Game)}
}

func (m *mockGameRepo) Create(_ context.Context, id, playerCountry, date string, offline bool) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Game{
		ID:            id,
		PlayerCountry: playerCountry,
		Turn:          1,
		Date:          date,
		IsOffline:     offline,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
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
		g.UpdatedAt = time.Now()
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

// mockTurnRepo implements repository.TurnRepository for testing.
type mockTurnRepo struct {
	mu    sync.Mutex
	turns map[string][]model.TurnRecord
}

func newMockTurnRepo() *mockTurnRepo {
	return &mockTurnRepo{turns: make(map[string][]model.TurnRecord)}
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

// mockCache implements repository.StateCache for testing.
type mockCache struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
}

func newMockCache() *mockCache {
	return &mockCache{states: make(map[string]json.RawMessage)}
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

type broadcastCall struct {
	gameID    string
	eventType string
	data      any
}

// recordingBroadcaster captures broadcast events.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{gameID, eventType, data})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.eventType
	}
	return out
}

// blockingOracle holds ResolveTurn until release is closed.
type blockingOracle struct {
	entered chan struct{}
	release chan struct{}
}

func (o *blockingOracle) Initialize(context.Context, string) (string, error) {
	return "", oracle.ErrUnavailable
}

func (o *blockingOracle) ResolveTurn(ctx context.Context, _ oracle.TurnRequest) (string, error) {
	close(o.entered)
	<-o.release
	return `{"newDate": "1 Fev 1936", "events": [{"title": "Calme", "description": "Rien."}]}`, nil
}
