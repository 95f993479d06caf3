package oracle

import (
	"context"
	"fmt"
)

const (
	initMaxTokens = 2000
	turnMaxTokens = 3000
)

// Completer is the text completion capability LLM needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// LLM is the Oracle backed by a chat model.
type LLM struct {
	completer Completer
}

// NewLLM wraps a completer. A nil *Client is accepted and makes every call
// fail with ErrUnavailable.
func NewLLM(c Completer) *LLM {
	return &LLM{completer: c}
}

// Initialize asks the model for an opening position for country.
func (o *LLM) Initialize(ctx context.Context, country string) (string, error) {
	if o.completer == nil {
		return "", fmt.Errorf("%w: no completer", ErrUnavailable)
	}
	system, user := BuildInitPrompt(country)
	return o.completer.Complete(ctx, system, user, initMaxTokens)
}

// ResolveTurn asks the model for the delta of one turn.
func (o *LLM) ResolveTurn(ctx context.Context, req TurnRequest) (string, error) {
	if o.completer == nil {
		return "", fmt.Errorf("%w: no completer", ErrUnavailable)
	}
	system, user, err := BuildTurnPrompt(req)
	if err != nil {
		return "", err
	}
	return o.completer.Complete(ctx, system, user, turnMaxTokens)
}
