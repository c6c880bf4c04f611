// Package quota computes per-day issuance allowances for reward cards.
//
// The computation is pure: callers pass the card set and the evaluation time,
// which keeps the day boundary deterministic in tests and avoids clock skew
// between caller and store. Atomic enforcement of the limits happens inside
// the store's issuance transaction; this package is the single source of the
// limits and of the tier-to-bucket mapping.
package quota

import (
	"time"

	"github.com/mateotillmann/elismeres-w3/internal/model"
)

// Daily issuance limits per bucket.
const (
	// BasicLimit bounds basic and gold cards combined (the 1 and 2 point cards).
	BasicLimit = 4
	// PremiumLimit bounds platinum cards (the 3 point "Arany" cards).
	PremiumLimit = 2
)

// Bucket is the quota grouping a card tier belongs to.
type Bucket string

const (
	BucketBasic   Bucket = "basic"
	BucketPremium Bucket = "premium"
)

// BucketFor maps a card tier to its quota bucket. Basic and gold cards share
// one bucket; platinum cards form the premium bucket.
func BucketFor(t model.CardType) Bucket {
	if t == model.CardTypePlatinum {
		return BucketPremium
	}
	return BucketBasic
}

// Limit returns the daily issuance limit of the bucket.
func (b Bucket) Limit() int {
	if b == BucketPremium {
		return PremiumLimit
	}
	return BasicLimit
}

// Snapshot is the derived, point-in-time issuance state for one day.
// It is recomputed on every evaluation and never cached: redemption of a card
// frees its quota slot, so the counts can change between any two calls.
type Snapshot struct {
	BasicIssued      int
	PremiumIssued    int
	BasicRemaining   int
	PremiumRemaining int
}

// Evaluate counts the unredeemed cards issued since local midnight of now.
// Redeemed cards do not count against the day's quota; the snapshot models
// outstanding cards, not historical issuance volume.
func Evaluate(cards []model.RewardCard, now time.Time) Snapshot {
	midnight := Midnight(now)

	var s Snapshot
	for _, c := range cards {
		if c.IsRedeemed || c.IssuedAt.Before(midnight) {
			continue
		}
		if BucketFor(c.CardType) == BucketPremium {
			s.PremiumIssued++
		} else {
			s.BasicIssued++
		}
	}

	s.BasicRemaining = remaining(BasicLimit, s.BasicIssued)
	s.PremiumRemaining = remaining(PremiumLimit, s.PremiumIssued)
	return s
}

// CanIssue reports whether a card of the given tier fits into its bucket.
func (s Snapshot) CanIssue(t model.CardType) bool {
	if BucketFor(t) == BucketPremium {
		return s.PremiumIssued < PremiumLimit
	}
	return s.BasicIssued < BasicLimit
}

// Midnight returns the start of the calendar day containing now, in now's
// location.
func Midnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func remaining(limit, issued int) int {
	if issued >= limit {
		return 0
	}
	return limit - issued
}
