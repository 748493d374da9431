package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dotsetgreg/chatmem/pkg/bus"
)

// DefaultLongTermCapacity is the canonical long-term fact bound.
const DefaultLongTermCapacity = 5

const defaultJournalBuffer = 256

// Config configures a Manager. Values are taken literally: capacity 0 retains
// nothing and threshold 0 accepts any non-empty input. DefaultConfig returns
// the canonical defaults (capacity 5, threshold 20).
type Config struct {
	// LongTermCapacity bounds each session's fact store. Must be >= 0.
	LongTermCapacity int
	// RetentionThreshold is the strict character threshold used by the
	// baseline length policy when Policy is nil.
	RetentionThreshold int
	// Policy overrides the baseline length policy.
	Policy RetentionPolicy
	// FormatFact derives the stored fact from an accepted input.
	// Defaults to DefaultFactFormat.
	FormatFact func(turnText string) string
	// ShortTermCap bounds each session's turn buffer. 0 = unbounded.
	ShortTermCap int
	// SessionCacheSize bounds the number of resident sessions with LRU
	// eviction over whole sessions. 0 = unbounded.
	SessionCacheSize int
	// Store, when set, durably mirrors session state via a background
	// journal goroutine and rehydrates cold session ids.
	Store SnapshotStore
	// JournalBuffer sizes the journal channel. Defaults to 256.
	JournalBuffer int
	// Bus, when set, receives memory lifecycle events.
	Bus *bus.MemoryBus
	// ValidateSessionID adds caller-defined validation on top of the
	// non-empty check. A returned error surfaces as ErrInvalidSessionID.
	ValidateSessionID func(sessionID string) error
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		LongTermCapacity:   DefaultLongTermCapacity,
		RetentionThreshold: DefaultRetentionThreshold,
	}
}

// Session is the handle for one conversation's memory state: a short-term
// turn buffer plus a bounded long-term fact store. All fields are owned by
// the Manager; callers hold no writable reference and mutate only through
// the Manager's operations.
type Session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	lastActive time.Time
	buffer     *ShortTermBuffer
	facts      *LongTermStore
	turnSeq    int
	factSeq    int
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when this session's state was first created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActiveAt returns the time of the session's most recent mutation.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// TurnCount returns the number of buffered short-term turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

// FactCount returns the number of retained long-term facts.
func (s *Session) FactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facts.Len()
}

type journalOpKind int

const (
	opEnsureSession journalOpKind = iota
	opAppendTurn
	opRetainFact
	opDeleteSession
)

type journalOp struct {
	kind      journalOpKind
	sessionID string
	seq       int
	turn      Turn
	fact      string
	keep      int
}

// Manager owns the mapping from session id to memory state and is the sole
// mutator of both tiers. Operations on distinct sessions proceed
// concurrently; operations on one session are linearized by that session's
// lock, with the map itself guarded only around lookup and insertion.
type Manager struct {
	cfg    Config
	policy RetentionPolicy
	format func(string) string

	mu       sync.RWMutex
	sessions map[string]*Session          // nil when cache is active
	cache    *lru.Cache[string, *Session] // non-nil when SessionCacheSize > 0

	journalCh    chan journalOp
	journalDrops atomic.Uint64

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewManager constructs a Manager. A negative long-term capacity fails
// immediately with ErrCapacityMisconfigured.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.LongTermCapacity < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacityMisconfigured, cfg.LongTermCapacity)
	}
	if cfg.SessionCacheSize < 0 {
		return nil, fmt.Errorf("memory: session cache size must be >= 0, got %d", cfg.SessionCacheSize)
	}
	if cfg.JournalBuffer <= 0 {
		cfg.JournalBuffer = defaultJournalBuffer
	}

	m := &Manager{
		cfg:    cfg,
		policy: cfg.Policy,
		format: cfg.FormatFact,
		stopCh: make(chan struct{}),
	}
	if m.policy == nil {
		m.policy = NewLengthPolicy(cfg.RetentionThreshold)
	}
	if m.format == nil {
		m.format = DefaultFactFormat
	}

	if cfg.SessionCacheSize > 0 {
		cache, err := lru.NewWithEvict[string, *Session](cfg.SessionCacheSize, m.onSessionEvicted)
		if err != nil {
			return nil, fmt.Errorf("memory: session cache: %w", err)
		}
		m.cache = cache
	} else {
		m.sessions = make(map[string]*Session)
	}

	if cfg.Store != nil {
		m.journalCh = make(chan journalOp, cfg.JournalBuffer)
		m.wg.Add(1)
		go m.runJournal()
	}
	return m, nil
}

// Close stops the journal worker, flushes pending mirror writes and closes
// the snapshot store. Idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		if m.cfg.Store != nil {
			m.closeErr = m.cfg.Store.Close()
		}
	})
	return m.closeErr
}

// GetOrCreateSession returns the session state for id, creating empty
// short-term and long-term tiers atomically on first reference. Creation is
// idempotent: every call for the same id returns the same handle for the
// lifetime of the process (or until the session is closed or LRU-evicted).
// When a snapshot store is configured, a cold id is rehydrated from it.
func (m *Manager) GetOrCreateSession(sessionID string) (*Session, error) {
	return m.getSession(sessionID)
}

// AppendTurn appends a turn to the session's short-term buffer in
// conversation order.
func (m *Manager) AppendTurn(sessionID string, turn Turn) error {
	s, err := m.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.buffer.Append(turn)
	s.turnSeq++
	seq := s.turnSeq
	s.lastActive = time.Now()
	m.enqueue(journalOp{kind: opAppendTurn, sessionID: s.id, seq: seq, turn: turn})
	s.mu.Unlock()

	m.publish(bus.EventTurnAppended, s.id, string(turn.Role))
	return nil
}

// RecordForLongTerm evaluates the retention policy against candidateText.
// If accepted, the formatted fact is appended to the session's long-term
// store, evicting the oldest facts FIFO when over capacity; the first return
// reports whether the candidate was retained. Rejection is a normal, silent
// outcome, never an error.
func (m *Manager) RecordForLongTerm(sessionID, candidateText string) (bool, error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return false, err
	}
	if !m.policy.Accepts(candidateText) {
		return false, nil
	}
	fact := m.format(candidateText)

	s.mu.Lock()
	evicted := s.facts.Insert(fact)
	s.factSeq++
	seq := s.factSeq
	s.lastActive = time.Now()
	m.enqueue(journalOp{kind: opRetainFact, sessionID: s.id, seq: seq, fact: fact, keep: s.facts.Capacity()})
	s.mu.Unlock()

	m.publish(bus.EventFactRetained, s.id, fact)
	for _, old := range evicted {
		m.publish(bus.EventFactEvicted, s.id, old)
	}
	return true, nil
}

// RenderShortTerm returns the session's buffered turns in conversation
// order, unmodified. Lazily creates the session when the id is unseen.
func (m *Manager) RenderShortTerm(sessionID string) ([]Turn, error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Turns(), nil
}

// RenderLongTerm returns the session's facts joined with FactDelimiter in
// retention order, oldest first; empty string when no facts exist.
func (m *Manager) RenderLongTerm(sessionID string) (string, error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facts.Render(), nil
}

// BuildPromptContext takes a single consistent snapshot of both memory tiers
// for the upcoming model call. The caller performs the external call with
// the returned context, then re-enters via AppendTurn/RecordForLongTerm.
func (m *Manager) BuildPromptContext(sessionID, userInput string) (PromptContext, error) {
	s, err := m.getSession(sessionID)
	if err != nil {
		return PromptContext{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return PromptContext{
		History:   s.buffer.Turns(),
		LongTerm:  s.facts.Render(),
		UserInput: userInput,
	}, nil
}

// CloseSession drops the session's in-memory state. Durable state, if any,
// is untouched; the next reference to the id rehydrates it. Closing an
// unknown id is a no-op.
func (m *Manager) CloseSession(sessionID string) error {
	if err := m.validateID(sessionID); err != nil {
		return err
	}
	if m.removeSession(sessionID) {
		m.publish(bus.EventSessionClosed, sessionID, "closed")
	}
	return nil
}

// Forget closes the session and deletes its durable state. The delete is
// routed through the journal so it orders after any pending mirror writes
// for the same session.
func (m *Manager) Forget(sessionID string) error {
	if err := m.CloseSession(sessionID); err != nil {
		return err
	}
	m.enqueue(journalOp{kind: opDeleteSession, sessionID: sessionID})
	return nil
}

// SweepIdle closes every session whose last activity is older than olderThan
// and returns how many were closed. Intended as the timer-driven expiry
// hook; pair with a scheduler for periodic sweeps.
func (m *Manager) SweepIdle(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	var stale []string
	for _, s := range m.resident() {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			stale = append(stale, s.id)
		}
	}

	closed := 0
	for _, id := range stale {
		if m.removeSession(id) {
			m.publish(bus.EventSessionClosed, id, "idle")
			closed++
		}
	}
	return closed
}

// SessionCount returns the number of resident sessions.
func (m *Manager) SessionCount() int {
	if m.cache != nil {
		return m.cache.Len()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// JournalDrops reports how many mirror writes were dropped because the
// journal buffer was full.
func (m *Manager) JournalDrops() uint64 { return m.journalDrops.Load() }

func (m *Manager) validateID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if m.cfg.ValidateSessionID != nil {
		if err := m.cfg.ValidateSessionID(sessionID); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
		}
	}
	return nil
}

func (m *Manager) getSession(sessionID string) (*Session, error) {
	if err := m.validateID(sessionID); err != nil {
		return nil, err
	}
	// The id is opaque: no normalization beyond the emptiness check.
	id := sessionID

	if s, ok := m.lookup(id); ok {
		return s, nil
	}

	// Cold id: rehydrate outside any lock, then insert under the write lock,
	// discarding the load if another goroutine won the race.
	fresh := m.newSession(id)

	m.mu.Lock()
	if s, ok := m.lookupLocked(id); ok {
		m.mu.Unlock()
		return s, nil
	}
	m.insertLocked(id, fresh)
	m.mu.Unlock()

	m.enqueue(journalOp{kind: opEnsureSession, sessionID: id})
	m.publish(bus.EventSessionCreated, id, "")
	return fresh, nil
}

// newSession builds a session, seeded from the snapshot store when one is
// configured and holds state for the id. Load failures degrade to an empty
// session; the store is a best-effort mirror, not the source of truth.
func (m *Manager) newSession(id string) *Session {
	now := time.Now()
	s := &Session{
		id:         id,
		createdAt:  now,
		lastActive: now,
		buffer:     NewShortTermBuffer(m.cfg.ShortTermCap),
		facts:      NewLongTermStore(m.cfg.LongTermCapacity),
	}
	if m.cfg.Store == nil {
		return s
	}

	snap, ok, err := m.cfg.Store.LoadSession(context.Background(), id)
	if err != nil || !ok {
		return s
	}
	for _, turn := range snap.Turns {
		s.buffer.Append(turn)
	}
	for _, fact := range snap.Facts {
		s.facts.Insert(fact)
	}
	s.turnSeq = snap.LastTurnSeq
	s.factSeq = snap.LastFactSeq
	if snap.CreatedAtMS > 0 {
		s.createdAt = time.UnixMilli(snap.CreatedAtMS)
	}
	return s
}

func (m *Manager) lookup(id string) (*Session, bool) {
	if m.cache != nil {
		return m.cache.Get(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) lookupLocked(id string) (*Session, bool) {
	if m.cache != nil {
		return m.cache.Get(id)
	}
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) insertLocked(id string, s *Session) {
	if m.cache != nil {
		m.cache.Add(id, s)
		return
	}
	m.sessions[id] = s
}

func (m *Manager) removeSession(id string) bool {
	if m.cache != nil {
		return m.cache.Remove(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) resident() []*Session {
	if m.cache != nil {
		keys := m.cache.Keys()
		out := make([]*Session, 0, len(keys))
		for _, k := range keys {
			if s, ok := m.cache.Peek(k); ok {
				out = append(out, s)
			}
		}
		return out
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) onSessionEvicted(id string, _ *Session) {
	m.publish(bus.EventSessionEvicted, id, "lru")
}

func (m *Manager) publish(kind bus.EventKind, sessionID, detail string) {
	if m.cfg.Bus == nil {
		return
	}
	m.cfg.Bus.Publish(bus.Event{Kind: kind, SessionID: sessionID, Detail: detail, At: time.Now()})
}

// enqueue hands a mirror write to the journal worker. Non-blocking: a manager
// operation never waits on I/O or a full buffer inside a critical section, so
// an overrun journal drops the write and counts it instead.
func (m *Manager) enqueue(op journalOp) {
	if m.journalCh == nil {
		return
	}
	select {
	case m.journalCh <- op:
	default:
		m.journalDrops.Add(1)
	}
}

func (m *Manager) runJournal() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.journalCh:
			m.applyOp(op)
		case <-m.stopCh:
			// Drain what is already buffered before exiting.
			for {
				select {
				case op := <-m.journalCh:
					m.applyOp(op)
				default:
					return
				}
			}
		}
	}
}

// applyOp mirrors one mutation into the snapshot store. Store errors are
// swallowed: the durable copy lags rather than failing the conversation.
func (m *Manager) applyOp(op journalOp) {
	ctx := context.Background()
	store := m.cfg.Store
	switch op.kind {
	case opEnsureSession:
		_ = store.EnsureSession(ctx, op.sessionID)
	case opAppendTurn:
		_ = store.AppendTurn(ctx, op.sessionID, op.seq, op.turn)
	case opRetainFact:
		_ = store.AppendFact(ctx, op.sessionID, op.seq, op.fact)
		_ = store.TrimFacts(ctx, op.sessionID, op.keep)
	case opDeleteSession:
		_ = store.DeleteSession(ctx, op.sessionID)
	}
}
