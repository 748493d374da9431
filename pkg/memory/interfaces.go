package memory

import "context"

// RetentionPolicy decides whether a turn's text qualifies for long-term
// retention. Implementations must be pure: same input, same answer, no side
// effects. The manager treats the policy as an injected strategy so smarter
// salience models can replace the baseline without touching eviction or
// locking code.
type RetentionPolicy interface {
	Accepts(turnText string) bool
}

// PolicyFunc adapts a plain predicate into a RetentionPolicy.
type PolicyFunc func(turnText string) bool

func (f PolicyFunc) Accepts(turnText string) bool { return f(turnText) }

// SnapshotStore provides optional durable persistence for session state.
// The manager mirrors mutations into the store from a background journal
// goroutine, never inside a session critical section, and consults it once
// when a cold session id is first referenced. Implementations must be safe
// for concurrent use.
type SnapshotStore interface {
	Close() error
	EnsureSession(ctx context.Context, sessionID string) error
	AppendTurn(ctx context.Context, sessionID string, seq int, turn Turn) error
	AppendFact(ctx context.Context, sessionID string, seq int, fact string) error
	TrimFacts(ctx context.Context, sessionID string, keep int) error
	LoadSession(ctx context.Context, sessionID string) (SessionSnapshot, bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}
