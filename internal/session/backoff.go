package session

import (
	"math/rand"
	"time"
)

// maxBackoff caps the reconnect delay regardless of how many attempts have
// already failed, per SPEC_FULL.md's reconnect policy.
const maxBackoff = 30 * time.Second

// backoffBase is the delay after the first failure, doubled for each
// subsequent one until maxBackoff.
const backoffBase = 500 * time.Millisecond

// backoffDelay returns a full-jitter exponential backoff for retry attempt n
// (n starts at 0 for the first retry): a uniformly random duration between
// zero and min(2^n * backoffBase, maxBackoff).
func backoffDelay(n int) time.Duration {
	cap := backoffBase << uint(n)
	if cap <= 0 || cap > maxBackoff {
		cap = maxBackoff
	}
	return time.Duration(rand.Int63n(int64(cap) + 1))
}
