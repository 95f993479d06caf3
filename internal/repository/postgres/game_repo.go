package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/paxhistoria/internal/model"
)

// GameRepo handles game catalogue database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new game with the given id.
func (r *GameRepo) Create(ctx context.Context, id, playerCountry, date string, offline bool) (*model.Game, error) {
	var g model.Game
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (id, player_country, turn, date, is_offline)
		 VALUES ($1, $2, 1, $3, $4)
		 RETURNING id, player_country, turn, date, is_offline, created_at, updated_at`,
		id, playerCountry, date, offline,
	).Scan(&g.ID, &g.PlayerCountry, &g.Turn, &g.Date, &g.IsOffline, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &g, nil
}

// FindByID returns a game by ID, or nil if it does not exist.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	err := r.db.QueryRowContext(ctx,
		`SELECT id, player_country, turn, date, is_offline, created_at, updated_at
		 FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.PlayerCountry, &g.Turn, &g.Date, &g.IsOffline, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return &g, nil
}

// List returns the most recently played games.
func (r *GameRepo) List(ctx context.Context, limit int) ([]model.Game, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, player_country, turn, date, is_offline, created_at, updated_at
		 FROM games ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.PlayerCountry, &g.Turn, &g.Date, &g.IsOffline, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// UpdateProgress records the turn, date and mode a game reached. The draft
// of the previous turn is dropped.
func (r *GameRepo) UpdateProgress(ctx context.Context, id string, turn int, date string, offline bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET turn = $2, date = $3, is_offline = $4, draft_state = NULL, updated_at = now()
		 WHERE id = $1`,
		id, turn, date, offline)
	if err != nil {
		return fmt.Errorf("update game progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update game progress: game %s not found", id)
	}
	return nil
}

// SaveDraft stores the live state between turns (queued orders, player
// messages), zstd-compressed like the archive.
func (r *GameRepo) SaveDraft(ctx context.Context, id string, state json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET draft_state = $2 WHERE id = $1`, id, compressState(state))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save draft: game %s not found", id)
	}
	return nil
}

// LoadDraft returns the saved draft, or nil if the game has none.
func (r *GameRepo) LoadDraft(ctx context.Context, id string) (json.RawMessage, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx, `SELECT draft_state FROM games WHERE id = $1`, id).Scan(&snapshot)
	if err == sql.ErrNoRows || (err == nil && snapshot == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	state, err := decompressState(snapshot)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return state, nil
}

// Delete removes a game and, by cascade, its archived turns.
func (r *GameRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}
