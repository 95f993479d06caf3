// Package oracle talks to the generative model that resolves turns and
// turns its free-form answers into typed deltas.
package oracle

//go:generate go tool mockgen -source=oracle.go -destination=mocks/mock_oracle.go -package=mocks

import (
	"context"
	"math"
	"strings"

	"github.com/freeeve/paxhistoria/pkg/turn"
)

// Oracle computes game openings and turn deltas. Both methods return the
// raw model output; callers parse it with ExtractPayload.
type Oracle interface {
	Initialize(ctx context.Context, country string) (string, error)
	ResolveTurn(ctx context.Context, req TurnRequest) (string, error)
}

// EntitySnapshot is the reduced view of an entity sent to the oracle.
type EntitySnapshot struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  turn.EntityType `json:"type"`
	Owner string          `json:"owner"`
	Lat   float64         `json:"lat"`
	Lon   float64         `json:"lon"`
}

// MessageDigest is a thread message as shown to the oracle.
type MessageDigest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// ThreadDigest is the tail of a diplomatic thread.
type ThreadDigest struct {
	Participants []string        `json:"participants"`
	Messages     []MessageDigest `json:"messages"`
}

// TurnRequest is everything the oracle needs to resolve one turn.
type TurnRequest struct {
	Date          string           `json:"date"`
	PlayerCountry string           `json:"playerCountry"`
	Orders        []string         `json:"orders"`
	Entities      []EntitySnapshot `json:"entities"`
	Threads       []ThreadDigest   `json:"threads,omitempty"`
}

// NewTurnRequest builds the compact context for a turn. Coordinates are
// rounded to two decimals, entities without a valid position are left out,
// and only the last history messages of each thread are kept.
func NewTurnRequest(gs *turn.GameState, history int) TurnRequest {
	req := TurnRequest{
		Date:          gs.Date,
		PlayerCountry: gs.PlayerCountry,
		Orders:        gs.Orders(),
		Entities:      make([]EntitySnapshot, 0, len(gs.Entities)),
	}
	for _, e := range gs.Entities {
		if !e.Position().Valid() {
			continue
		}
		req.Entities = append(req.Entities, EntitySnapshot{
			ID:    e.ID,
			Name:  e.Name,
			Type:  e.Type,
			Owner: e.Owner,
			Lat:   round2(e.Latitude),
			Lon:   round2(e.Longitude),
		})
	}

	for _, t := range gs.Diplomacy {
		msgs := t.Messages
		if history >= 0 && len(msgs) > history {
			msgs = msgs[len(msgs)-history:]
		}
		if len(msgs) == 0 {
			continue
		}
		d := ThreadDigest{Participants: append([]string(nil), t.Participants...)}
		for _, m := range msgs {
			d.Messages = append(d.Messages, MessageDigest{Sender: m.Sender, Content: strings.TrimSpace(m.Content)})
		}
		req.Threads = append(req.Threads, d)
	}
	return req
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
