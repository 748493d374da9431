package memory

import "strings"

// FactDelimiter joins facts in the rendered long-term view.
const FactDelimiter = ". "

// LongTermStore holds a session's retained facts in retention order, bounded
// by a fixed capacity with oldest-first (FIFO) eviction. Insertion order is
// retention-priority order; rejected candidates never reach the store and so
// never consume a slot.
//
// Not safe for concurrent use on its own. The Manager serializes all access
// under the owning session's lock.
type LongTermStore struct {
	facts    []string
	capacity int
}

// NewLongTermStore creates an empty store. Capacity must be >= 0; the Manager
// rejects negative values at construction with ErrCapacityMisconfigured.
// Capacity 0 is legal and retains nothing.
func NewLongTermStore(capacity int) *LongTermStore {
	return &LongTermStore{capacity: capacity}
}

// Insert appends a fact and evicts from the front until the store fits its
// capacity again. The evicted facts are returned oldest-first.
func (s *LongTermStore) Insert(fact string) []string {
	s.facts = append(s.facts, fact)
	var evicted []string
	for len(s.facts) > s.capacity {
		evicted = append(evicted, s.facts[0])
		s.facts = s.facts[1:]
	}
	return evicted
}

// Render joins the facts with FactDelimiter in retention order, oldest first.
// Returns the empty string when no facts exist. The join is deliberately
// plain: no deduplication, no relevance reordering.
func (s *LongTermStore) Render() string {
	return strings.Join(s.facts, FactDelimiter)
}

// Facts returns a copy of the retained facts in retention order.
func (s *LongTermStore) Facts() []string {
	out := make([]string, len(s.facts))
	copy(out, s.facts)
	return out
}

// Len returns the number of retained facts.
func (s *LongTermStore) Len() int { return len(s.facts) }

// Capacity returns the configured bound.
func (s *LongTermStore) Capacity() int { return s.capacity }
