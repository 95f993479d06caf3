package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/paxhistoria/internal/model"
)

// GameRepository defines game catalogue operations.
type GameRepository interface {
	Create(ctx context.Context, id, playerCountry, date string, offline bool) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	List(ctx context.Context, limit int) ([]model.Game, error)
	UpdateProgress(ctx context.Context, id string, turn int, date string, offline bool) error
	SaveDraft(ctx context.Context, id string, state json.RawMessage) error
	LoadDraft(ctx context.Context, id string) (json.RawMessage, error)
	Delete(ctx context.Context, id string) error
}

// TurnRepository archives resolved turns.
type TurnRepository interface {
	RecordTurn(ctx context.Context, rec model.TurnRecord) error
	ListTurns(ctx context.Context, gameID string) ([]model.TurnRecord, error)
	LatestState(ctx context.Context, gameID string) (json.RawMessage, error)
}

// StateCache defines live game state operations (Redis).
type StateCache interface {
	SetGameState(ctx context.Context, gameID string, state json.RawMessage) error
	GetGameState(ctx context.Context, gameID string) (json.RawMessage, error)
	DeleteGameState(ctx context.Context, gameID string) error
}
