package types

import "time"

const (
	// MaxDefaultLines is the default number of output lines returned by
	// paginated tools (top view).
	MaxDefaultLines = 200
	// MaxAllowedLines is the upper bound a caller may request per page.
	MaxAllowedLines = 100000

	// SessionIdleThreshold is how long a session may sit untouched before
	// the sweeper evicts it.
	SessionIdleThreshold = 24 * time.Hour
	// SessionSweepInterval is how often the sweeper runs.
	SessionSweepInterval = time.Hour
	// MaxSessionRecords caps the number of invocation records kept in a
	// session's context. Older records stay available through storage.
	MaxSessionRecords = 100
)
