package retry

import (
	"context"
	"time"
)

// WithSleep replaces the sleep function so tests don't wait on real timers.
func (p Policy) WithSleep(fn func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = fn
	return p
}
