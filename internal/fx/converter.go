// Package fx converts monetary amounts between currencies using a
// point-in-time rate table. Conversions only ever use rates effective at or
// before the requested time, which keeps historical analysis free of
// look-ahead bias.
package fx

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantrail/merchantiq/internal/config"
)

// ErrRateUnavailable is returned when no rate exists at or before the
// requested time for a currency pair. It is a local failure: callers skip
// the affected unit rather than abort a run.
var ErrRateUnavailable = errors.New("fx rate unavailable")

type rate struct {
	effectiveAt time.Time
	value       decimal.Decimal
}

// Converter maps amounts between currencies. It is immutable after
// construction and safe for concurrent use.
type Converter struct {
	// rates per "FROM->TO" pair, sorted by effective time ascending.
	rates map[string][]rate
}

// NewConverter builds a converter from the configured rate table. Rates are
// assumed validated (positive, parseable timestamps) by config.Validate.
func NewConverter(cfg config.FXConfig) *Converter {
	c := &Converter{rates: make(map[string][]rate)}
	for _, r := range cfg.Rates {
		at, err := time.Parse(time.RFC3339, r.EffectiveAt)
		if err != nil {
			continue
		}
		key := pairKey(r.From, r.To)
		c.rates[key] = append(c.rates[key], rate{effectiveAt: at, value: decimal.NewFromFloat(r.Rate)})
	}
	for key := range c.rates {
		rs := c.rates[key]
		sort.Slice(rs, func(i, j int) bool { return rs[i].effectiveAt.Before(rs[j].effectiveAt) })
	}
	return c
}

// Convert maps amount from one currency to another using the newest rate
// effective at or before asOf. A same-currency conversion returns the
// amount unchanged without a table lookup. When no direct rate exists the
// inverse pair is tried and inverted.
func (c *Converter) Convert(amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("fx: amount must not be negative, got %s", amount)
	}
	if from == to {
		return amount, nil
	}

	if r, ok := c.lookup(from, to, asOf); ok {
		return amount.Mul(r), nil
	}
	if r, ok := c.lookup(to, from, asOf); ok {
		return amount.Div(r), nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s->%s as of %s", ErrRateUnavailable, from, to, asOf.Format(time.RFC3339))
}

// lookup finds the newest rate at or before asOf for a pair.
func (c *Converter) lookup(from, to string, asOf time.Time) (decimal.Decimal, bool) {
	rs := c.rates[pairKey(from, to)]
	if len(rs) == 0 {
		return decimal.Zero, false
	}
	// First entry strictly after asOf; the one before it is the answer.
	idx := sort.Search(len(rs), func(i int) bool { return rs[i].effectiveAt.After(asOf) })
	if idx == 0 {
		return decimal.Zero, false
	}
	return rs[idx-1].value, true
}

func pairKey(from, to string) string {
	return from + "->" + to
}
