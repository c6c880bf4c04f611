package quota

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/mateotillmann/elismeres-w3/internal/model"
)

func card(t model.CardType, issuedAt time.Time, redeemed bool) model.RewardCard {
	c := model.RewardCard{
		ID:         "c",
		EmployeeID: "e",
		CardType:   t,
		IssuedAt:   issuedAt,
	}
	if redeemed {
		c.IsRedeemed = true
		at := issuedAt.Add(time.Hour)
		c.RedeemedAt = &at
	}
	return c
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 30, 0, 0, time.Local)
	today := now.Add(-2 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		cards       []model.RewardCard
		wantBasic   int
		wantPremium int
	}{
		{
			name: "empty day",
		},
		{
			name: "basic and gold share a bucket",
			cards: []model.RewardCard{
				card(model.CardTypeBasic, today, false),
				card(model.CardTypeGold, today, false),
			},
			wantBasic: 2,
		},
		{
			name: "platinum counts as premium",
			cards: []model.RewardCard{
				card(model.CardTypePlatinum, today, false),
			},
			wantPremium: 1,
		},
		{
			name: "yesterday's cards are ignored",
			cards: []model.RewardCard{
				card(model.CardTypeBasic, yesterday, false),
				card(model.CardTypePlatinum, yesterday, false),
			},
		},
		{
			name: "redeemed cards free their slot",
			cards: []model.RewardCard{
				card(model.CardTypeBasic, today, true),
				card(model.CardTypeBasic, today, false),
				card(model.CardTypePlatinum, today, true),
			},
			wantBasic: 1,
		},
		{
			name: "issued exactly at midnight counts",
			cards: []model.RewardCard{
				card(model.CardTypeGold, Midnight(now), false),
			},
			wantBasic: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Evaluate(tt.cards, now)
			if s.BasicIssued != tt.wantBasic {
				t.Fatalf("BasicIssued = %d, want %d", s.BasicIssued, tt.wantBasic)
			}
			if s.PremiumIssued != tt.wantPremium {
				t.Fatalf("PremiumIssued = %d, want %d", s.PremiumIssued, tt.wantPremium)
			}
		})
	}
}

func TestCanIssue_AtLimit(t *testing.T) {
	now := time.Now()

	var cards []model.RewardCard
	for i := 0; i < BasicLimit; i++ {
		cards = append(cards, card(model.CardTypeBasic, now, false))
	}
	for i := 0; i < PremiumLimit; i++ {
		cards = append(cards, card(model.CardTypePlatinum, now, false))
	}

	s := Evaluate(cards, now)

	if s.CanIssue(model.CardTypeBasic) {
		t.Fatalf("basic bucket full, CanIssue(basic) = true")
	}
	if s.CanIssue(model.CardTypeGold) {
		t.Fatalf("basic bucket full, CanIssue(gold) = true")
	}
	if s.CanIssue(model.CardTypePlatinum) {
		t.Fatalf("premium bucket full, CanIssue(platinum) = true")
	}
	if s.BasicRemaining != 0 || s.PremiumRemaining != 0 {
		t.Fatalf("remaining = %d/%d, want 0/0", s.BasicRemaining, s.PremiumRemaining)
	}
}

func TestCanIssue_OneSlotLeft(t *testing.T) {
	now := time.Now()

	cards := []model.RewardCard{
		card(model.CardTypeBasic, now, false),
		card(model.CardTypeBasic, now, false),
		card(model.CardTypeGold, now, false),
		card(model.CardTypePlatinum, now, false),
	}

	s := Evaluate(cards, now)

	if !s.CanIssue(model.CardTypeGold) {
		t.Fatalf("one basic slot left, CanIssue(gold) = false")
	}
	if !s.CanIssue(model.CardTypePlatinum) {
		t.Fatalf("one premium slot left, CanIssue(platinum) = false")
	}
	if s.BasicRemaining != 1 {
		t.Fatalf("BasicRemaining = %d, want 1", s.BasicRemaining)
	}
	if s.PremiumRemaining != 1 {
		t.Fatalf("PremiumRemaining = %d, want 1", s.PremiumRemaining)
	}
}

func TestBucketFor(t *testing.T) {
	if BucketFor(model.CardTypeBasic) != BucketBasic {
		t.Fatalf("basic must map to the basic bucket")
	}
	if BucketFor(model.CardTypeGold) != BucketBasic {
		t.Fatalf("gold must map to the basic bucket")
	}
	if BucketFor(model.CardTypePlatinum) != BucketPremium {
		t.Fatalf("platinum must map to the premium bucket")
	}
	if BucketBasic.Limit() != BasicLimit || BucketPremium.Limit() != PremiumLimit {
		t.Fatalf("bucket limits do not match package constants")
	}
}

// Evaluate over arbitrary card sets: counts match a naive per-card recount,
// remaining allowances are never negative, and over-limit days report zero
// remaining rather than underflowing.
func TestEvaluate_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := time.Unix(rapid.Int64Range(1e9, 2e9).Draw(rt, "now"), 0)
		midnight := Midnight(now)

		types := []model.CardType{
			model.CardTypeBasic,
			model.CardTypeGold,
			model.CardTypePlatinum,
		}

		n := rapid.IntRange(0, 30).Draw(rt, "n")
		cards := make([]model.RewardCard, 0, n)
		for i := 0; i < n; i++ {
			offset := time.Duration(rapid.IntRange(-48, 23).Draw(rt, "hour")) * time.Hour
			cards = append(cards, card(
				types[rapid.IntRange(0, 2).Draw(rt, "type")],
				midnight.Add(offset),
				rapid.Bool().Draw(rt, "redeemed"),
			))
		}

		s := Evaluate(cards, now)

		var wantBasic, wantPremium int
		for _, c := range cards {
			if c.IsRedeemed || c.IssuedAt.Before(midnight) {
				continue
			}
			if c.CardType == model.CardTypePlatinum {
				wantPremium++
			} else {
				wantBasic++
			}
		}

		if s.BasicIssued != wantBasic || s.PremiumIssued != wantPremium {
			rt.Fatalf("counts = %d/%d, want %d/%d", s.BasicIssued, s.PremiumIssued, wantBasic, wantPremium)
		}
		if s.BasicRemaining < 0 || s.PremiumRemaining < 0 {
			rt.Fatalf("remaining must never be negative: %+v", s)
		}
		if s.BasicIssued >= BasicLimit && s.BasicRemaining != 0 {
			rt.Fatalf("basic bucket at limit but remaining = %d", s.BasicRemaining)
		}
		if s.PremiumIssued >= PremiumLimit && s.PremiumRemaining != 0 {
			rt.Fatalf("premium bucket at limit but remaining = %d", s.PremiumRemaining)
		}
		if s.CanIssue(model.CardTypeBasic) != (s.BasicIssued < BasicLimit) {
			rt.Fatalf("CanIssue(basic) disagrees with count %d", s.BasicIssued)
		}
		if s.CanIssue(model.CardTypePlatinum) != (s.PremiumIssued < PremiumLimit) {
			rt.Fatalf("CanIssue(platinum) disagrees with count %d", s.PremiumIssued)
		}
	})
}
