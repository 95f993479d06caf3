package oracle

import "errors"

var (
	// ErrUnavailable covers a missing client, transport failures, timeouts
	// and the local call budget being exhausted.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrUnauthorized is returned when the provider rejects our credentials
	// or quota.
	ErrUnauthorized = errors.New("oracle unauthorized")
	// ErrRefused means the oracle answered with an explicit error payload.
	ErrRefused = errors.New("oracle refused request")
	// ErrMalformedReply means the reply could not be turned into a usable
	// payload.
	ErrMalformedReply = errors.New("malformed oracle reply")
)
