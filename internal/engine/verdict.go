package engine

import (
	"github.com/shopspring/decimal"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/models"
)

// verdictRule is one row of the decision table.
type verdictRule struct {
	name    string
	applies func(models.ProfitResult, models.RiskScore) bool
	result  models.Verdict
}

// Classifier maps a (profit, risk) pair to a verdict through an explicit
// ordered rule table; the first matching rule wins. Risk vetoes come before
// the profit promotion on purpose: a single catastrophic risk factor must
// never be averaged away by a high margin.
type Classifier struct {
	rules []verdictRule
}

// NewClassifier builds the decision table from configured thresholds.
func NewClassifier(cfg config.EngineConfig) *Classifier {
	strongROI := decimal.NewFromFloat(cfg.ROIThresholds.Strong)
	lowRisk := cfg.RiskThresholds.Low
	highRisk := cfg.RiskThresholds.High

	return &Classifier{rules: []verdictRule{
		{
			name: "unprofitable_or_high_risk",
			applies: func(p models.ProfitResult, r models.RiskScore) bool {
				return p.ROI == nil || p.ROI.IsNegative() || r.Aggregate >= highRisk
			},
			result: models.VerdictNoGo,
		},
		{
			name: "ip_veto",
			applies: func(_ models.ProfitResult, r models.RiskScore) bool {
				return r.Dimension(models.RiskIP) >= 1
			},
			result: models.VerdictNoGo,
		},
		{
			name: "strong_roi_low_risk",
			applies: func(p models.ProfitResult, r models.RiskScore) bool {
				return p.ROI != nil && p.ROI.GreaterThanOrEqual(strongROI) && r.Aggregate <= lowRisk
			},
			result: models.VerdictGo,
		},
		{
			name:    "default_conditional",
			applies: func(models.ProfitResult, models.RiskScore) bool { return true },
			result:  models.VerdictConditional,
		},
	}}
}

// Classify walks the decision table top to bottom and returns the first
// matching rule's verdict along with the rule name for auditability.
func (c *Classifier) Classify(profit models.ProfitResult, risk models.RiskScore) (models.Verdict, string) {
	for _, rule := range c.rules {
		if rule.applies(profit, risk) {
			return rule.result, rule.name
		}
	}
	// The table ends in a catch-all; this is unreachable.
	return models.VerdictConditional, "default_conditional"
}
