package memory

// ShortTermBuffer holds the verbatim recent turns of one session in
// conversation order. Append-only; entries are never reordered, deduplicated
// or mutated after insertion. Unbounded by default; a positive cap drops the
// oldest turn once exceeded.
//
// Not safe for concurrent use on its own. The Manager serializes all access
// under the owning session's lock.
type ShortTermBuffer struct {
	turns []Turn
	limit int
}

// NewShortTermBuffer creates an empty buffer. limit <= 0 means unbounded.
func NewShortTermBuffer(limit int) *ShortTermBuffer {
	return &ShortTermBuffer{limit: limit}
}

// Append adds a turn at the end, evicting the oldest turn when a cap is
// configured and exceeded.
func (b *ShortTermBuffer) Append(turn Turn) {
	b.turns = append(b.turns, turn)
	if b.limit > 0 && len(b.turns) > b.limit {
		b.turns = b.turns[1:]
	}
}

// Turns returns a copy of the buffer contents in conversation order.
func (b *ShortTermBuffer) Turns() []Turn {
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len returns the number of buffered turns.
func (b *ShortTermBuffer) Len() int { return len(b.turns) }
