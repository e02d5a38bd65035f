package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/fees"
	"github.com/quantrail/merchantiq/internal/fx"
)

// Engine bundles the evaluator and matcher assembled from one configuration
// snapshot. Construction is cheap, so callers that need the newest
// thresholds, FX rates and fee schedules build a fresh Engine from the
// current snapshot instead of holding one across reloads.
type Engine struct {
	Evaluator *Evaluator
	Matcher   *Matcher
}

// New assembles the full decision pipeline from a configuration snapshot.
// The snapshot is read once here; a later config swap never mutates an
// Engine already handed out.
func New(source SeriesSource, cfg *config.Config, logger *logrus.Logger) *Engine {
	converter := fx.NewConverter(cfg.FX)
	feeModel := fees.NewModel(cfg.Fees)
	calc := NewProfitCalculator(converter, feeModel, cfg.Engine.SettlementCurrency)
	scorer := NewRiskScorer(cfg.Engine)
	classifier := NewClassifier(cfg.Engine)

	return &Engine{
		Evaluator: NewEvaluator(source, calc, scorer, classifier, cfg.Engine, logger),
		Matcher:   NewMatcher(source, calc, scorer, classifier, cfg.Engine.TrendWindow(), cfg.Engine.Workers, logger),
	}
}
