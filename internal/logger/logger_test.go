package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected 8-character ids, got %q and %q", a, b)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	ctx := WithRequestID(context.Background(), "abc12345")
	if got := RequestIDFromContext(ctx); got != "abc12345" {
		t.Errorf("expected abc12345, got %q", got)
	}
}

func TestForGameTagsFields(t *testing.T) {
	buf := captureGlobal(t)
	ctx := WithRequestID(context.Background(), "req-1")

	l := ForGame(ctx, "game-7", 3)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["requestId"] != "req-1" || entry["gameId"] != "game-7" || entry["turn"] != float64(3) {
		t.Errorf("unexpected fields: %v", entry)
	}
}

func TestLogBodyTruncates(t *testing.T) {
	buf := captureGlobal(t)

	LogBody(log.Logger, "request_body", bytes.Repeat([]byte("x"), maxLoggedBody+10))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["truncated"] != true || len(entry["request_body"].(string)) != maxLoggedBody {
		t.Errorf("expected truncated body, got %v", entry)
	}
}

func TestWriterForJSON(t *testing.T) {
	var buf bytes.Buffer
	if w := writerFor("json", &buf); w != &buf {
		t.Error("json format should write raw lines")
	}
	if _, ok := writerFor("console", &buf).(zerolog.ConsoleWriter); !ok {
		t.Error("console format should use ConsoleWriter")
	}
}
