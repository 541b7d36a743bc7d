package feed

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// Throttled limits the query rate against a shared feed backend
type Throttled struct {
	next    Feed
	limiter *rate.Limiter
}

// NewThrottled allows perSecond snapshot reads with the given burst.
// perSecond <= 0 disables throttling.
func NewThrottled(next Feed, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.SnapshotAt(ctx, sha)
}

func (t *Throttled) CoveredSHAs(ctx context.Context) (map[string]bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.CoveredSHAs(ctx)
}
