package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/lib/pq"

	"github.com/freeeve/paxhistoria/internal/model"
)

// Shared codecs; EncodeAll and DecodeAll are safe for concurrent use.
var (
	snapshotEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	snapshotDecoder, _ = zstd.NewReader(nil)
)

// TurnRepo archives resolved turns. Full states are stored zstd-compressed.
type TurnRepo struct {
	db *sql.DB
}

// NewTurnRepo creates a TurnRepo.
func NewTurnRepo(db *sql.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// RecordTurn inserts a turn. Recording the same game turn twice replaces
// the earlier row.
func (r *TurnRepo) RecordTurn(ctx context.Context, rec model.TurnRecord) error {
	events := rec.Events
	if len(events) == 0 {
		events = json.RawMessage("[]")
	}
	var snapshot []byte
	if len(rec.StateAfter) > 0 {
		snapshot = compressState(rec.StateAfter)
	}
	orders := rec.Orders
	if orders == nil {
		orders = []string{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO turns (game_id, turn, date, offline, orders, events, state_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (game_id, turn) DO UPDATE
		 SET date = EXCLUDED.date, offline = EXCLUDED.offline, orders = EXCLUDED.orders,
		     events = EXCLUDED.events, state_after = EXCLUDED.state_after, created_at = now()`,
		rec.GameID, rec.Turn, rec.Date, rec.Offline, pq.Array(orders), []byte(events), snapshot,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// ListTurns returns a game's archived turns in order, without state
// snapshots.
func (r *TurnRepo) ListTurns(ctx context.Context, gameID string) ([]model.TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, turn, date, offline, orders, events, created_at
		 FROM turns WHERE game_id = $1 ORDER BY turn`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.TurnRecord
	for rows.Next() {
		var t model.TurnRecord
		var events []byte
		if err := rows.Scan(&t.ID, &t.GameID, &t.Turn, &t.Date, &t.Offline, pq.Array(&t.Orders), &events, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Events = json.RawMessage(events)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// LatestState returns the decompressed state of the most recent archived
// turn, or nil if the game has none.
func (r *TurnRepo) LatestState(ctx context.Context, gameID string) (json.RawMessage, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT state_after FROM turns
		 WHERE game_id = $1 AND state_after IS NOT NULL
		 ORDER BY turn DESC LIMIT 1`, gameID,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest state: %w", err)
	}
	state, err := decompressState(snapshot)
	if err != nil {
		return nil, fmt.Errorf("latest state: %w", err)
	}
	return state, nil
}

func compressState(state json.RawMessage) []byte {
	return snapshotEncoder.EncodeAll(state, make([]byte, 0, len(state)/4))
}

func decompressState(snapshot []byte) (json.RawMessage, error) {
	out, err := snapshotDecoder.DecodeAll(snapshot, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress state: %w", err)
	}
	return json.RawMessage(out), nil
}
