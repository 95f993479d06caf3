package service

// Broadcaster pushes game events to the players watching a game.
// The WebSocket hub implements it.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster drops every event. NewGameService falls back to it when
// no hub is wired.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
