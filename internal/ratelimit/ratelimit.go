// Package ratelimit provides the single process-wide gate that spaces every
// outbound provider call, regardless of which adapter or client triggers it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between any two granted calls. All
// provider adapters share one Gate; there is no per-provider budget.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate that grants at most one call per interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Acquire blocks until the interval since the previous granted call has
// elapsed, then records the grant. It returns early only when the context is
// canceled.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}
	return nil
}
