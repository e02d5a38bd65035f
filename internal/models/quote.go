package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one observation of a product on one marketplace at one point in
// time. Exactly one quote exists per (ASIN, marketplace, observation time);
// within a series observation times strictly increase.
type Quote struct {
	ASIN        string              `json:"asin" db:"asin"`
	Marketplace string              `json:"marketplace" db:"marketplace"`
	Currency    string              `json:"currency" db:"currency"`
	ListPrice   decimal.Decimal     `json:"list_price" db:"list_price"`
	BuyBoxPrice decimal.NullDecimal `json:"buy_box_price" db:"buy_box_price"`
	Rank        int                 `json:"rank" db:"rank"`
	ReviewCount int                 `json:"review_count" db:"review_count"`
	Rating      float64             `json:"rating" db:"rating"`
	SellerCount int                 `json:"seller_count" db:"seller_count"`
	Fulfillment string              `json:"fulfillment" db:"fulfillment"`
	WeightGrams float64             `json:"weight_grams" db:"weight_grams"`
	ObservedAt  time.Time           `json:"observed_at" db:"observed_at"`
}

// EffectivePrice returns the buy-box price when present, otherwise the list
// price. The boolean is false when neither yields a positive price.
func (q Quote) EffectivePrice() (decimal.Decimal, bool) {
	if q.BuyBoxPrice.Valid && q.BuyBoxPrice.Decimal.IsPositive() {
		return q.BuyBoxPrice.Decimal, true
	}
	if q.ListPrice.IsPositive() {
		return q.ListPrice, true
	}
	return decimal.Zero, false
}

// SnapshotSeries is the append-only history of quotes for one
// (ASIN, marketplace) pair, ordered by observation time ascending.
type SnapshotSeries struct {
	ASIN        string  `json:"asin"`
	Marketplace string  `json:"marketplace"`
	Quotes      []Quote `json:"quotes"`
}

// Current returns the most recent quote in the series.
func (s SnapshotSeries) Current() (Quote, bool) {
	if len(s.Quotes) == 0 {
		return Quote{}, false
	}
	return s.Quotes[len(s.Quotes)-1], true
}

// Len returns the number of observations in the series.
func (s SnapshotSeries) Len() int {
	return len(s.Quotes)
}
