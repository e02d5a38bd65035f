package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Verdict is the engine's discrete recommendation for an opportunity.
type Verdict string

const (
	VerdictGo          Verdict = "GO"
	VerdictConditional Verdict = "CONDITIONAL"
	VerdictNoGo        Verdict = "NO-GO"
)

// Risk dimension names used by the risk scorer and the configuration's
// weight table.
const (
	RiskPriceWar    = "price_war"
	RiskSeasonality = "seasonality"
	RiskReturnRate  = "return_rate"
	RiskIP          = "ip"
)

// VelocityGrade buckets a product's sales momentum.
type VelocityGrade string

const (
	VelocitySprinter VelocityGrade = "sprinter"
	VelocitySteady   VelocityGrade = "steady"
	VelocitySlow     VelocityGrade = "slow"
)

// ProfitResult holds the outcome of a buy/sell profit calculation with all
// amounts expressed in the settlement currency. ROI and Margin are nil when
// their denominator is zero; they are never reported as zero in that case.
type ProfitResult struct {
	Currency  string           `json:"currency"`
	BuyCost   decimal.Decimal  `json:"buy_cost"`
	SellPrice decimal.Decimal  `json:"sell_price"`
	Fees      decimal.Decimal  `json:"fees"`
	NetProfit decimal.Decimal  `json:"net_profit"`
	ROI       *decimal.Decimal `json:"roi,omitempty"`
	Margin    *decimal.Decimal `json:"margin,omitempty"`
	Oversize  bool             `json:"oversize,omitempty"`
}

// TrendSignal carries rank velocity and review momentum derived from a
// snapshot window. SampleCount lets callers judge how meaningful the signal
// is; a single observation produces a zero signal, not an error.
type TrendSignal struct {
	RankVelocity   float64   `json:"rank_velocity"`   // rank units per day, negative is improving
	ReviewMomentum float64   `json:"review_momentum"` // new reviews per day
	SampleCount    int       `json:"sample_count"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
}

// RiskScore maps named risk dimensions to normalized scores in [0,1] plus a
// weighted aggregate. LowConfidence lists dimensions computed from proxy
// data rather than their preferred inputs.
type RiskScore struct {
	Dimensions    map[string]float64 `json:"dimensions"`
	Aggregate     float64            `json:"aggregate"`
	LowConfidence []string           `json:"low_confidence,omitempty"`
}

// Dimension returns the score for a named dimension, zero when absent.
func (r RiskScore) Dimension(name string) float64 {
	return r.Dimensions[name]
}

// ArbitrageOpportunity is one buy-here/sell-there pairing for a product.
// Instances are created per evaluation run and never mutated afterwards.
type ArbitrageOpportunity struct {
	ID              string          `json:"id"`
	ASIN            string          `json:"asin"`
	BuyMarketplace  string          `json:"buy_marketplace"`
	SellMarketplace string          `json:"sell_marketplace"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	BuyCurrency     string          `json:"buy_currency"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	SellCurrency    string          `json:"sell_currency"`
	Profit          ProfitResult    `json:"profit"`
	Risk            RiskScore       `json:"risk"`
	Verdict         Verdict         `json:"verdict"`
	DetectedAt      time.Time       `json:"detected_at"`
}

// SkipEntry records a unit that was skipped during a run, with the reason.
type SkipEntry struct {
	ASIN   string `json:"asin"`
	Unit   string `json:"unit"` // marketplace, or "buy->sell" for a pair
	Reason string `json:"reason"`
}

// ArbitrageRun is the outcome of one cross-marketplace evaluation for one
// product: opportunities ranked by margin plus the units skipped and why.
type ArbitrageRun struct {
	RunID         string                 `json:"run_id"`
	ASIN          string                 `json:"asin"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	Skipped       []SkipEntry            `json:"skipped,omitempty"`
	Evaluated     int                    `json:"evaluated"`
	StartedAt     time.Time              `json:"started_at"`
}

// MarketReport is the single-market evaluation output: profit, trend, risk
// and verdict for a product on one marketplace.
type MarketReport struct {
	ASIN          string        `json:"asin"`
	Marketplace   string        `json:"marketplace"`
	Profit        ProfitResult  `json:"profit"`
	Trend         TrendSignal   `json:"trend"`
	Risk          RiskScore     `json:"risk"`
	Verdict       Verdict       `json:"verdict"`
	VerdictRule   string        `json:"verdict_rule"`
	VelocityGrade VelocityGrade `json:"velocity_grade"`
	GeneratedAt   time.Time     `json:"generated_at"`
	EngineVersion string        `json:"engine_version"`
}

// BatchResult summarizes a batch evaluation: per-unit successes and the
// skip list. A batch never silently drops a unit.
type BatchResult struct {
	RunID     string         `json:"run_id"`
	Reports   []MarketReport `json:"reports"`
	Succeeded int            `json:"succeeded"`
	Skipped   []SkipEntry    `json:"skipped,omitempty"`
	StartedAt time.Time      `json:"started_at"`
}
