// Package fees computes marketplace selling fees: a referral percentage of
// the sale price plus a fulfillment fee looked up by weight tier.
package fees

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantrail/merchantiq/internal/config"
)

// ErrUnknownCategory is returned when a category has no referral fee row.
// Callers are expected to retry with config.GenericCategory rather than
// treat this as fatal.
var ErrUnknownCategory = errors.New("unknown fee category")

// Estimate is the fee breakdown for one sale. Referral is a percentage of
// the price passed in and is denominated in that price's currency;
// Fulfillment is a flat tier fee denominated in FulfillmentCurrency.
type Estimate struct {
	Referral            decimal.Decimal
	Fulfillment         decimal.Decimal
	FulfillmentCurrency string
	Tier                string
	// Oversize is set when the product exceeds every tier bound and the
	// largest tier was used as a fallback.
	Oversize bool
}

// Model evaluates fee schedules. It is immutable after construction and
// safe for concurrent use; a configuration reload builds a new Model.
type Model struct {
	schedules map[string]config.FeeScheduleConfig
}

// NewModel builds a fee model from the configured schedules. Tier tables
// are assumed sorted ascending by weight bound (config normalization does
// this at load time).
func NewModel(cfg config.FeesConfig) *Model {
	return &Model{schedules: cfg.Schedules}
}

// EstimateFees computes referral plus fulfillment fees for selling at the
// given price on a marketplace. The fulfillment tier is the smallest tier
// whose bound is at least weightGrams; a product heavier than every bound
// falls back to the largest tier with Oversize set.
func (m *Model) EstimateFees(marketplace, category string, price decimal.Decimal, weightGrams float64) (Estimate, error) {
	sched, ok := m.schedules[marketplace]
	if !ok {
		return Estimate{}, fmt.Errorf("no fee schedule for marketplace %q", marketplace)
	}

	pct, ok := sched.ReferralPct[category]
	if !ok {
		return Estimate{}, fmt.Errorf("%w: %q on %s", ErrUnknownCategory, category, marketplace)
	}

	est := Estimate{
		Referral:            price.Mul(decimal.NewFromFloat(pct)),
		FulfillmentCurrency: sched.Currency,
	}

	tiers := sched.FulfillmentTiers
	if len(tiers) == 0 {
		return Estimate{}, fmt.Errorf("no fulfillment tiers for marketplace %q", marketplace)
	}
	for _, t := range tiers {
		if t.MaxWeightGrams >= weightGrams {
			est.Fulfillment = decimal.NewFromFloat(t.Fee)
			est.Tier = t.Name
			return est, nil
		}
	}

	last := tiers[len(tiers)-1]
	est.Fulfillment = decimal.NewFromFloat(last.Fee)
	est.Tier = last.Name
	est.Oversize = true
	return est, nil
}
