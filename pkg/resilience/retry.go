package resilience

import "time"

const (
	defaultMaxRetries = 2
	defaultBackoff    = 200 * time.Millisecond
)

// RetryPolicy retries transient failures with a fixed backoff between
// attempts. Vendor connects (websocket dials in particular) are the
// intended callers.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// NewRetryPolicy clamps non-positive arguments to the defaults.
func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn up to MaxRetries+1 times and returns the last error.
func (r RetryPolicy) Do(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == r.MaxRetries {
			return err
		}
		time.Sleep(r.Backoff)
	}
}
