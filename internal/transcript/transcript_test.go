package transcript

import (
	"testing"
	"time"

	"omnichat/internal/session"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record := session.Record{
		SessionID: "abc-123",
		Provider:  "mock",
		Model:     "mock-model",
		StartedAt: time.Now().UTC(),
		Turns: []session.Turn{
			{Question: "hello", Answer: "hi", Status: "success", StepsUsed: 1},
		},
	}
	if err := store.Save(record); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load("abc-123")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SessionID != "abc-123" || len(loaded.Turns) != 1 {
		t.Fatalf("unexpected record: %+v", loaded)
	}
	if loaded.Turns[0].Answer != "hi" {
		t.Fatalf("unexpected turn: %+v", loaded.Turns[0])
	}

	ids, err := store.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "abc-123" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Load("nope"); err == nil {
		t.Fatalf("expected error for missing transcript")
	}
}
