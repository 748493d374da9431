package memory

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "state", "sessions.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	const sessionID = "cli:roundtrip"
	if err := store.EnsureSession(ctx, sessionID); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if err := store.AppendTurn(ctx, sessionID, 1, Turn{Role: RoleUser, Text: "hello"}); err != nil {
		t.Fatalf("append user turn: %v", err)
	}
	if err := store.AppendTurn(ctx, sessionID, 2, Turn{Role: RoleAssistant, Text: "world"}); err != nil {
		t.Fatalf("append assistant turn: %v", err)
	}
	if err := store.AppendFact(ctx, sessionID, 1, "User said: something memorable"); err != nil {
		t.Fatalf("append fact: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store2.Close()

	snap, ok, err := store2.LoadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !ok {
		t.Fatalf("expected session to exist after reopen")
	}
	if len(snap.Turns) != 2 || snap.Turns[0].Text != "hello" || snap.Turns[1].Text != "world" {
		t.Fatalf("unexpected turns: %#v", snap.Turns)
	}
	if snap.Turns[0].Role != RoleUser || snap.Turns[1].Role != RoleAssistant {
		t.Fatalf("roles not preserved: %#v", snap.Turns)
	}
	if len(snap.Facts) != 1 || snap.Facts[0] != "User said: something memorable" {
		t.Fatalf("unexpected facts: %#v", snap.Facts)
	}
	if snap.LastTurnSeq != 2 || snap.LastFactSeq != 1 {
		t.Fatalf("sequence counters not restored: turn=%d fact=%d", snap.LastTurnSeq, snap.LastFactSeq)
	}
}

func TestSQLiteStore_LoadMissingSession(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	_, ok, err := store.LoadSession(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for unknown session")
	}
}

func TestSQLiteStore_TrimFactsKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	const sessionID = "cli:trim"
	for i := 1; i <= 7; i++ {
		if err := store.AppendFact(ctx, sessionID, i, "fact"+string(rune('0'+i))); err != nil {
			t.Fatalf("append fact %d: %v", i, err)
		}
	}
	if err := store.TrimFacts(ctx, sessionID, 5); err != nil {
		t.Fatalf("trim: %v", err)
	}

	snap, _, err := store.LoadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Facts) != 5 {
		t.Fatalf("expected 5 facts after trim, got %d", len(snap.Facts))
	}
	if snap.Facts[0] != "fact3" || snap.Facts[4] != "fact7" {
		t.Fatalf("expected oldest trimmed, got %#v", snap.Facts)
	}
}

func TestSQLiteStore_DeleteSession(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	const sessionID = "cli:delete"
	if err := store.AppendTurn(ctx, sessionID, 1, Turn{Role: RoleUser, Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.DeleteSession(ctx, sessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, err := store.LoadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected session gone after delete")
	}
}

func TestSQLiteStore_ListSessions(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.AppendTurn(ctx, "one", 1, Turn{Role: RoleUser, Text: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendFact(ctx, "one", 1, "User said: a long enough fact"); err != nil {
		t.Fatalf("append fact: %v", err)
	}
	if err := store.EnsureSession(ctx, "two"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	records, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(records))
	}
	byID := map[string]SessionRecord{}
	for _, rec := range records {
		byID[rec.SessionID] = rec
	}
	if byID["one"].TurnCount != 1 || byID["one"].FactCount != 1 {
		t.Fatalf("unexpected counts for session one: %+v", byID["one"])
	}
}

func TestManager_RehydratesFromStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Store = store
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	const sessionID = "cli:restart"
	if err := m.AppendTurn(sessionID, Turn{Role: RoleUser, Text: "Hello! My name is Alice."}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if retained, err := m.RecordForLongTerm(sessionID, "Hello! My name is Alice."); err != nil || !retained {
		t.Fatalf("record: retained=%v err=%v", retained, err)
	}
	// Close flushes the journal and closes the store.
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	cfg2 := DefaultConfig()
	cfg2.Store = store2
	m2, err := NewManager(cfg2)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m2.Close()

	longTerm, err := m2.RenderLongTerm(sessionID)
	if err != nil {
		t.Fatalf("render long term: %v", err)
	}
	if longTerm != "User said: Hello! My name is Alice." {
		t.Fatalf("facts did not survive restart: %q", longTerm)
	}

	turns, err := m2.RenderShortTerm(sessionID)
	if err != nil {
		t.Fatalf("render short term: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "Hello! My name is Alice." {
		t.Fatalf("turns did not survive restart: %#v", turns)
	}
}
