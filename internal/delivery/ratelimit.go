package delivery

import (
	"context"

	"golang.org/x/time/rate"

	"aromabot/internal/domain"
)

// RateLimited throttles sends to the wrapped provider. Callers wait for a
// token; they are never dropped.
type RateLimited struct {
	next    domain.Delivery
	limiter *rate.Limiter
}

func NewRateLimited(next domain.Delivery, perSecond rate.Limit, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(perSecond, burst)}
}

func (r *RateLimited) Name() string { return r.next.Name() }

func (r *RateLimited) Send(ctx context.Context, recipient, body string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Upstream("delivery", err)
	}
	return r.next.Send(ctx, recipient, body)
}
