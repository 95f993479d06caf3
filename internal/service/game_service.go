package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/paxhistoria/internal/logger"
	"github.com/freeeve/paxhistoria/internal/model"
	"github.com/freeeve/paxhistoria/internal/repository"
	"github.com/freeeve/paxhistoria/pkg/turn"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrTurnInProgress = errors.New("a turn is already being resolved for this game")
	ErrEmptyAction    = errors.New("action text is empty")
	ErrActionNotFound = errors.New("action not found")
	ErrThreadNotFound = errors.New("thread not found")
	ErrEmptyMessage   = errors.New("message is empty or has no recipient")
	ErrInvalidCountry = errors.New("invalid country")
)

const (
	maxCountryLen = 64
	maxActionLen  = 500
)

// Event types pushed to subscribers of a game.
const (
	EventGameStarted  = "game_started"
	EventTurnStarted  = "turn_started"
	EventTurnResolved = "turn_resolved"
	EventStateChanged = "state_changed"
)

// MapMarker is an entity as drawn by the map renderer.
type MapMarker struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        turn.EntityType `json:"type"`
	Owner       string          `json:"owner"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Description string          `json:"description,omitempty"`
}

// GameService owns the lifecycle of single-player games: opening, queued
// orders, diplomacy and turn resolution. The live state sits in the cache;
// every resolved turn is archived.
type GameService struct {
	gameRepo    repository.GameRepository
	turnRepo    repository.TurnRepository
	cache       repository.StateCache
	resolver    *Resolver
	broadcaster Broadcaster

	// gameLocks serializes writers of a game's state. Writers never wait:
	// a busy game rejects the call.
	gameLocks sync.Map
	// resolving marks games whose turn is being computed.
	resolving sync.Map
}

// NewGameService creates a GameService.
func NewGameService(
	gameRepo repository.GameRepository,
	turnRepo repository.TurnRepository,
	cache repository.StateCache,
	resolver *Resolver,
	broadcaster Broadcaster,
) *GameService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &GameService{
		gameRepo:    gameRepo,
		turnRepo:    turnRepo,
		cache:       cache,
		resolver:    resolver,
		broadcaster: broadcaster,
	}
}

// gameLock returns the mutex for a given game ID.
func (s *GameService) gameLock(gameID string) *sync.Mutex {
	v, _ := s.gameLocks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *GameService) tryLock(gameID string) (unlock func(), err error) {
	mu := s.gameLock(gameID)
	if !mu.TryLock() {
		return nil, ErrTurnInProgress
	}
	return mu.Unlock, nil
}

// CreateGame opens a new game for the player's country.
func (s *GameService) CreateGame(ctx context.Context, country string) (*turn.GameState, error) {
	country = strings.TrimSpace(country)
	if country == "" || utf8.RuneCountInString(country) > maxCountryLen {
		return nil, ErrInvalidCountry
	}

	gs, out := s.resolver.Initialize(ctx, country)
	gs.ID = uuid.NewString()

	if _, err := s.gameRepo.Create(ctx, gs.ID, country, gs.Date, gs.IsOffline); err != nil {
		return nil, err
	}
	stateJSON, err := s.saveState(ctx, gs)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, gs.ID, model.TurnRecord{
		GameID:     gs.ID,
		Turn:       0,
		Date:       gs.Date,
		Offline:    gs.IsOffline,
		Events:     mustMarshal(gs.Events),
		StateAfter: stateJSON,
	})

	log.Info().Str("gameId", gs.ID).Str("country", country).Bool("offline", out.Offline).Msg("Game created")
	s.broadcaster.BroadcastGameEvent(gs.ID, EventGameStarted, map[string]any{
		"country": country,
		"date":    gs.Date,
		"offline": gs.IsOffline,
	})
	return gs, nil
}

// ListGames returns the most recently played games.
func (s *GameService) ListGames(ctx context.Context, limit int) ([]model.Game, error) {
	return s.gameRepo.List(ctx, limit)
}

// GetState returns the current state of a game.
func (s *GameService) GetState(ctx context.Context, gameID string) (*turn.GameState, error) {
	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, busy := s.resolving.Load(gameID); busy {
		gs.IsLoading = true
	}
	return gs, nil
}

// DeleteGame removes a game, its archive and its cached state.
func (s *GameService) DeleteGame(ctx context.Context, gameID string) error {
	unlock, err := s.tryLock(gameID)
	if err != nil {
		return err
	}
	defer unlock()

	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if err := s.gameRepo.Delete(ctx, gameID); err != nil {
		return err
	}
	if err := s.cache.DeleteGameState(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to drop cached state")
	}
	return nil
}

// QueueAction appends a free-text order for the next turn.
func (s *GameService) QueueAction(ctx context.Context, gameID, text string) (turn.PlayerAction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return turn.PlayerAction{}, ErrEmptyAction
	}
	if utf8.RuneCountInString(text) > maxActionLen {
		text = string([]rune(text)[:maxActionLen])
	}

	unlock, err := s.tryLock(gameID)
	if err != nil {
		return turn.PlayerAction{}, err
	}
	defer unlock()

	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return turn.PlayerAction{}, err
	}
	action := turn.PlayerAction{ID: s.resolver.Stamp().NewID("act"), Text: text}
	gs.PlannedActions = append(gs.PlannedActions, action)
	stateJSON, err := s.saveState(ctx, gs)
	if err != nil {
		return turn.PlayerAction{}, err
	}
	s.saveDraft(ctx, gameID, stateJSON)
	s.broadcaster.BroadcastGameEvent(gameID, EventStateChanged, map[string]any{"planned_actions": len(gs.PlannedActions)})
	return action, nil
}

// RemoveAction drops a queued order.
func (s *GameService) RemoveAction(ctx context.Context, gameID, actionID string) error {
	unlock, err := s.tryLock(gameID)
	if err != nil {
		return err
	}
	defer unlock()

	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return err
	}
	kept := gs.PlannedActions[:0]
	for _, a := range gs.PlannedActions {
		if a.ID != actionID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(gs.PlannedActions) {
		return ErrActionNotFound
	}
	gs.PlannedActions = kept
	stateJSON, err := s.saveState(ctx, gs)
	if err != nil {
		return err
	}
	s.saveDraft(ctx, gameID, stateJSON)
	s.broadcaster.BroadcastGameEvent(gameID, EventStateChanged, map[string]any{"planned_actions": len(gs.PlannedActions)})
	return nil
}

// ResolveTurn computes the next turn of a game. Only one resolution per game
// runs at a time; concurrent calls get ErrTurnInProgress.
func (s *GameService) ResolveTurn(ctx context.Context, gameID string) (*turn.GameState, error) {
	unlock, err := s.tryLock(gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.resolving.Store(gameID, struct{}{})
	defer s.resolving.Delete(gameID)
	s.broadcaster.BroadcastGameEvent(gameID, EventTurnStarted, map[string]any{"turn": gs.Turn})

	next, out := s.resolver.ResolveTurn(ctx, gs)

	stateJSON, err := s.saveState(ctx, next)
	if err != nil {
		return nil, err
	}
	newEvents := next.Events[:len(next.Events)-len(gs.Events)]
	s.archive(ctx, gameID, model.TurnRecord{
		GameID:     gameID,
		Turn:       gs.Turn,
		Date:       next.Date,
		Offline:    next.IsOffline,
		Orders:     gs.Orders(),
		Events:     mustMarshal(newEvents),
		StateAfter: stateJSON,
	})
	if err := s.gameRepo.UpdateProgress(ctx, gameID, next.Turn, next.Date, next.IsOffline); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to update game progress")
	}

	lg := logger.ForGame(ctx, gameID, gs.Turn)
	logEvt := lg.Info()
	if out.Offline {
		logEvt = lg.Warn().AnErr("reason", out.Reason)
	}
	logEvt.Str("date", next.Date).Int("events", len(newEvents)).Bool("offline", out.Offline).Msg("Turn resolved")

	s.broadcaster.BroadcastGameEvent(gameID, EventTurnResolved, map[string]any{
		"turn":    next.Turn,
		"date":    next.Date,
		"offline": next.IsOffline,
		"events":  newEvents,
	})
	return next, nil
}

// ListThreads returns the diplomatic threads of a game.
func (s *GameService) ListThreads(ctx context.Context, gameID string) ([]turn.DiplomaticThread, error) {
	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return gs.Diplomacy, nil
}

// SendMessage posts a player message. With a threadID it goes to that
// thread; otherwise to the thread with exactly these participants, created
// if needed.
func (s *GameService) SendMessage(ctx context.Context, gameID, threadID string, participants []string, content string) (*turn.DiplomaticThread, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	unlock, err := s.tryLock(gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	threads, id, ok := turn.PostPlayerMessage(gs.Diplomacy, threadID, participants, content, gs.PlayerCountry, s.resolver.Stamp())
	if !ok {
		if threadID != "" {
			return nil, ErrThreadNotFound
		}
		return nil, ErrEmptyMessage
	}
	gs.Diplomacy = threads
	stateJSON, err := s.saveState(ctx, gs)
	if err != nil {
		return nil, err
	}
	s.saveDraft(ctx, gameID, stateJSON)
	s.broadcaster.BroadcastGameEvent(gameID, EventStateChanged, map[string]any{"thread_id": id})
	return gs.ThreadByID(id), nil
}

// MarkThreadRead clears the unread counter of a thread.
func (s *GameService) MarkThreadRead(ctx context.Context, gameID, threadID string) error {
	unlock, err := s.tryLock(gameID)
	if err != nil {
		return err
	}
	defer unlock()

	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return err
	}
	threads, ok := turn.MarkRead(gs.Diplomacy, threadID)
	if !ok {
		return ErrThreadNotFound
	}
	gs.Diplomacy = threads
	stateJSON, err := s.saveState(ctx, gs)
	if err != nil {
		return err
	}
	s.saveDraft(ctx, gameID, stateJSON)
	return nil
}

// ListTurns returns the archived turns of a game, opening included.
func (s *GameService) ListTurns(ctx context.Context, gameID string) ([]model.TurnRecord, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return s.turnRepo.ListTurns(ctx, gameID)
}

// MapView returns the entities that can be placed on the map.
func (s *GameService) MapView(ctx context.Context, gameID string) ([]MapMarker, error) {
	gs, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	markers := make([]MapMarker, 0, len(gs.Entities))
	for _, e := range gs.Entities {
		if !e.Position().Valid() {
			continue
		}
		markers = append(markers, MapMarker{
			ID:          e.ID,
			Name:        e.Name,
			Type:        e.Type,
			Owner:       e.Owner,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Description: e.Description,
		})
	}
	return markers, nil
}

// loadState reads the live state. When the cache has lost it, the state is
// rebuilt from the game's draft or, if the draft is missing or older, from
// the last archived turn. A game without a catalogue row is gone, whatever
// the archive still holds.
func (s *GameService) loadState(ctx context.Context, gameID string) (*turn.GameState, error) {
	stateJSON, err := s.cache.GetGameState(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("get cached state: %w", err)
	}
	if stateJSON != nil {
		var gs turn.GameState
		if err := json.Unmarshal(stateJSON, &gs); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
		return &gs, nil
	}

	gs, err := s.restoreState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("gameId", gameID).Int("turn", gs.Turn).Msg("Restored game state from storage")
	if _, err := s.saveState(ctx, gs); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to re-cache restored state")
	}
	return gs, nil
}

func (s *GameService) restoreState(ctx context.Context, gameID string) (*turn.GameState, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	archived, err := s.turnRepo.LatestState(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load archived state: %w", err)
	}
	draft, err := s.gameRepo.LoadDraft(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Ignoring unreadable draft")
		draft = nil
	}

	var best *turn.GameState
	for _, raw := range []json.RawMessage{archived, draft} {
		if raw == nil {
			continue
		}
		var gs turn.GameState
		if err := json.Unmarshal(raw, &gs); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Skipping undecodable stored state")
			continue
		}
		// A draft is taken during the turn it belongs to; it loses to an
		// archive of a later turn.
		if best == nil || gs.Turn >= best.Turn {
			best = &gs
		}
	}
	if best == nil {
		return nil, ErrGameNotFound
	}
	return best, nil
}

func (s *GameService) saveState(ctx context.Context, gs *turn.GameState) (json.RawMessage, error) {
	stateJSON, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := s.cache.SetGameState(ctx, gs.ID, stateJSON); err != nil {
		return nil, fmt.Errorf("set game state: %w", err)
	}
	return stateJSON, nil
}

// archive stores a turn record. The live state is already saved, so a
// failure here only costs history.
func (s *GameService) archive(ctx context.Context, gameID string, rec model.TurnRecord) {
	if err := s.turnRepo.RecordTurn(ctx, rec); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Int("turn", rec.Turn).Msg("Failed to archive turn")
	}
}

// saveDraft keeps between-turn changes durable. The cache already holds
// them, so a failure is only logged.
func (s *GameService) saveDraft(ctx context.Context, gameID string, stateJSON json.RawMessage) {
	if err := s.gameRepo.SaveDraft(ctx, gameID, stateJSON); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to save draft")
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return b
}
