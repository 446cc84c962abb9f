package fetch

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces requests to stay polite to the remote server: at most one
// request per interval (burst requests at once) plus a random jitter.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer; a zero interval disables spacing
func NewPacer(interval, jitter time.Duration, burst int) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, max(burst, 1)),
		jitter:  jitter,
		sleep:   Sleep,
	}
}

// Wait blocks until the next request may start
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.jitter > 0 {
		return p.sleep(ctx, rand.N(p.jitter))
	}
	return nil
}
