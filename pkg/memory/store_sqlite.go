package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SnapshotStore backed by a local SQLite database. It
// persists Session = (sessionId, ordered Turn sequence, ordered Fact
// sequence) so long-term facts survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

var _ SnapshotStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates/opens the session database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process journal worker. One shared connection avoids writer
	// lock contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL,
			turn_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS turns_session_idx ON turns(session_id, seq);`,
		`CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS facts_session_idx ON facts(session_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init session db: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) EnsureSession(ctx context.Context, sessionID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at_ms = excluded.updated_at_ms
	`, sessionID, now, now)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, seq int, turn Turn) error {
	now := time.Now().UnixMilli()
	if err := s.EnsureSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, seq, role, content, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), sessionID, seq, string(turn.Role), turn.Text, now); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET turn_count = turn_count + 1, updated_at_ms = ? WHERE session_id = ?
	`, now, sessionID); err != nil {
		return fmt.Errorf("bump turn count: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendFact(ctx context.Context, sessionID string, seq int, fact string) error {
	if err := s.EnsureSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO facts (id, session_id, seq, content, created_at_ms)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), sessionID, seq, fact, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	return nil
}

// TrimFacts deletes all but the keep most recent facts for the session,
// mirroring the in-memory FIFO eviction.
func (s *SQLiteStore) TrimFacts(ctx context.Context, sessionID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM facts
		WHERE session_id = ?
		  AND id NOT IN (
			SELECT id FROM facts WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		  )
	`, sessionID, sessionID, keep); err != nil {
		return fmt.Errorf("trim facts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (SessionSnapshot, bool, error) {
	snap := SessionSnapshot{SessionID: sessionID}

	err := s.db.QueryRowContext(ctx, `
		SELECT created_at_ms, updated_at_ms FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&snap.CreatedAtMS, &snap.UpdatedAtMS)
	if err == sql.ErrNoRows {
		return SessionSnapshot{}, false, nil
	}
	if err != nil {
		return SessionSnapshot{}, false, fmt.Errorf("load session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, role, content FROM turns WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return SessionSnapshot{}, false, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seq  int
			role string
			text string
		)
		if err := rows.Scan(&seq, &role, &text); err != nil {
			return SessionSnapshot{}, false, fmt.Errorf("scan turn: %w", err)
		}
		snap.Turns = append(snap.Turns, Turn{Role: Role(role), Text: text})
		if seq > snap.LastTurnSeq {
			snap.LastTurnSeq = seq
		}
	}
	if err := rows.Err(); err != nil {
		return SessionSnapshot{}, false, fmt.Errorf("iterate turns: %w", err)
	}

	factRows, err := s.db.QueryContext(ctx, `
		SELECT seq, content FROM facts WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return SessionSnapshot{}, false, fmt.Errorf("load facts: %w", err)
	}
	defer factRows.Close()
	for factRows.Next() {
		var (
			seq  int
			fact string
		)
		if err := factRows.Scan(&seq, &fact); err != nil {
			return SessionSnapshot{}, false, fmt.Errorf("scan fact: %w", err)
		}
		snap.Facts = append(snap.Facts, fact)
		if seq > snap.LastFactSeq {
			snap.LastFactSeq = seq
		}
	}
	if err := factRows.Err(); err != nil {
		return SessionSnapshot{}, false, fmt.Errorf("iterate facts: %w", err)
	}

	return snap, true, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	for _, stmt := range []string{
		`DELETE FROM turns WHERE session_id = ?`,
		`DELETE FROM facts WHERE session_id = ?`,
		`DELETE FROM sessions WHERE session_id = ?`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.created_at_ms, s.updated_at_ms, s.turn_count,
		       (SELECT COUNT(*) FROM facts f WHERE f.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.updated_at_ms DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.SessionID, &rec.CreatedAtMS, &rec.UpdatedAtMS, &rec.TurnCount, &rec.FactCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
