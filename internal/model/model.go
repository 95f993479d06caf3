package model

import (
	"encoding/json"
	"time"
)

// Game is the catalogue row of a game. The live world lives in the state
// cache; this row tracks progress for listings.
type Game struct {
	ID            string    `json:"id"`
	PlayerCountry string    `json:"player_country"`
	Turn          int       `json:"turn"`
	Date          string    `json:"date"`
	IsOffline     bool      `json:"is_offline"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TurnRecord is one archived turn: the events it produced and the full
// state it ended in.
type TurnRecord struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	Turn       int             `json:"turn"`
	Date       string          `json:"date"`
	Offline    bool            `json:"offline"`
	Orders     []string        `json:"orders"`
	Events     json.RawMessage `json:"events"`
	StateAfter json.RawMessage `json:"state_after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
