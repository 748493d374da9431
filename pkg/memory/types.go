package memory

// Role tags one side of a conversation exchange.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged utterance in a conversation. Turns are immutable
// values; once appended to a session they are never reordered or rewritten.
type Turn struct {
	Role Role
	Text string
}

// SessionSnapshot is the serialized form of one session's state, as loaded
// from or written to a SnapshotStore: the session id, the ordered turn
// sequence, and the ordered fact sequence.
type SessionSnapshot struct {
	SessionID   string
	Turns       []Turn
	Facts       []string
	LastTurnSeq int
	LastFactSeq int
	CreatedAtMS int64
	UpdatedAtMS int64
}

// SessionRecord is a listing entry for a persisted session.
type SessionRecord struct {
	SessionID   string
	TurnCount   int
	FactCount   int
	CreatedAtMS int64
	UpdatedAtMS int64
}

// PromptContext is the memory context assembled for one model call: the
// verbatim short-term history, the rendered long-term view, and the input
// that triggered the call. The model call itself happens outside the
// manager; callers build the context, release, and re-enter with the result.
type PromptContext struct {
	History   []Turn
	LongTerm  string
	UserInput string
}
