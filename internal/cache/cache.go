// Package cache holds the optional read-through cache for campaign funding summaries.
// Entries are display-only: investment intake always aggregates inside its transaction.
//
// Every campaign carries a generation counter that Invalidate bumps. A reader takes the
// generation before querying the store and hands it back to SetIfCurrent, which drops
// the write when an invalidation happened in between. A summary read before a commit
// therefore never lands in the cache after that commit's invalidation.
package cache

import (
	"context"

	"github.com/tastyfund/backend/internal/models"
)

type SummaryCache interface {
	Get(ctx context.Context, campaignID string) (models.FundingSummary, bool)
	// Generation returns the current invalidation counter. ok is false when the cache
	// cannot tell, in which case the caller must not store what it reads.
	Generation(ctx context.Context, campaignID string) (gen int64, ok bool)
	// SetIfCurrent stores s only while the counter still equals gen.
	SetIfCurrent(ctx context.Context, campaignID string, gen int64, s models.FundingSummary)
	Invalidate(ctx context.Context, campaignID string)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (models.FundingSummary, bool) {
	return models.FundingSummary{}, false
}

func (Noop) Generation(context.Context, string) (int64, bool) { return 0, false }

func (Noop) SetIfCurrent(context.Context, string, int64, models.FundingSummary) {}

func (Noop) Invalidate(context.Context, string) {}
