package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func stateKey(gameID string) string { return "game:" + gameID + ":state" }

// SetGameState stores the live game state JSON and refreshes its expiry.
func (c *Client) SetGameState(ctx context.Context, gameID string, state json.RawMessage) error {
	if err := c.rdb.Set(ctx, stateKey(gameID), []byte(state), c.ttl).Err(); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}
	return nil
}

// GetGameState retrieves the live game state JSON, or nil if none is cached.
func (c *Client) GetGameState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return json.RawMessage(data), nil
}

// DeleteGameState removes the cached state of a game.
func (c *Client) DeleteGameState(ctx context.Context, gameID string) error {
	if err := c.rdb.Del(ctx, stateKey(gameID)).Err(); err != nil {
		return fmt.Errorf("delete game state: %w", err)
	}
	return nil
}
