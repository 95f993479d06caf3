package postgres

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSnapshotCompressionRoundTrip(t *testing.T) {
	state := json.RawMessage(bytes.Repeat([]byte(`{"id":"army-fr","latitude":48.85},`), 200))

	packed := compressState(state)
	if len(packed) >= len(state) {
		t.Fatalf("expected compression, got %d >= %d bytes", len(packed), len(state))
	}
	got, err := decompressState(packed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, state) {
		t.Fatal("snapshot did not survive compression")
	}
}

func TestSnapshotDecompressRejectsGarbage(t *testing.T) {
	if _, err := decompressState([]byte("not zstd")); err == nil {
		t.Fatal("expected error for garbage snapshot")
	}
}
