package memory

import "errors"

var (
	// ErrInvalidSessionID indicates the session id is empty or failed the
	// caller-supplied validation hook. No partial mutation occurs.
	ErrInvalidSessionID = errors.New("memory: invalid session id")

	// ErrCapacityMisconfigured indicates a negative long-term capacity.
	// Surfaced at construction time, never at call time.
	ErrCapacityMisconfigured = errors.New("memory: long-term capacity must be >= 0")

	// ErrSessionBusy indicates a bounded wait on a session lock expired.
	// The baseline manager never blocks on I/O inside a critical section and
	// so never returns it; implementations that add bounded lock waits report
	// contention through this sentinel so callers can retry.
	ErrSessionBusy = errors.New("memory: session busy")
)
