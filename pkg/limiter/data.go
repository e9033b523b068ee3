package limiter

import "time"

// hostTiming tracks the outbound request timing state for one remote host.
type hostTiming struct {
	lastFetchAt  time.Time
	hostDelay    time.Duration
	backoffCount int
	backoffDelay time.Duration
}
