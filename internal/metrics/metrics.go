// Package metrics exposes Prometheus counters for card lifecycle events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CardsIssued counts successfully issued cards per tier.
var CardsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reward_cards_issued_total",
	Help: "Number of reward cards issued, by card type.",
}, []string{"card_type"})

// QuotaRefusals counts issuance attempts refused by the daily limit.
var QuotaRefusals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reward_cards_quota_refusals_total",
	Help: "Number of card issuances refused because the daily bucket limit was reached.",
}, []string{"bucket"})

// CardsRedeemed counts successful redemptions.
var CardsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reward_cards_redeemed_total",
	Help: "Number of reward cards redeemed.",
})
