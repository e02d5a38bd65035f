package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/models"
)

// Evaluator produces single-market reports: profit for a resale-in-place
// scenario, trend, risk and verdict for one product on one marketplace.
type Evaluator struct {
	source      SeriesSource
	calc        *ProfitCalculator
	scorer      *RiskScorer
	classifier  *Classifier
	trendWindow time.Duration
	velocity    config.VelocityConfig
	logger      *logrus.Logger
}

// NewEvaluator wires the evaluator from its collaborators.
func NewEvaluator(source SeriesSource, calc *ProfitCalculator, scorer *RiskScorer, classifier *Classifier, cfg config.EngineConfig, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		source:      source,
		calc:        calc,
		scorer:      scorer,
		classifier:  classifier,
		trendWindow: cfg.TrendWindow(),
		velocity:    cfg.Velocity,
		logger:      logger,
	}
}

// EvaluateMarket analyzes one (product, marketplace) unit. Verdicts are
// always re-derived from the current snapshot history, never read back from
// a previous run.
func (e *Evaluator) EvaluateMarket(ctx context.Context, asin, marketplace, category string) (*models.MarketReport, error) {
	series, err := e.source.GetSeries(ctx, asin, marketplace)
	if err != nil {
		return nil, err
	}
	quote, ok := series.Current()
	if !ok {
		return nil, ErrNoPriceAvailable
	}

	profit, err := e.calc.ComputeResale(quote, category)
	if err != nil {
		return nil, err
	}

	trend := ExtractTrend(series, e.trendWindow)
	risk := e.scorer.Score(series, trend, nil)
	verdict, rule := e.classifier.Classify(profit, risk)

	report := &models.MarketReport{
		ASIN:          asin,
		Marketplace:   marketplace,
		Profit:        profit,
		Trend:         trend,
		Risk:          risk,
		Verdict:       verdict,
		VerdictRule:   rule,
		VelocityGrade: e.grade(trend),
		GeneratedAt:   time.Now().UTC(),
		EngineVersion: Version,
	}

	e.logger.WithFields(logrus.Fields{
		"asin":        asin,
		"marketplace": marketplace,
		"verdict":     verdict,
		"rule":        rule,
	}).Info("Market evaluated")

	return report, nil
}

// EvaluateBatch runs EvaluateMarket over many products. Local failures
// become skip entries with a reason; they never abort the batch.
func (e *Evaluator) EvaluateBatch(ctx context.Context, asins []string, marketplace, category string) (*models.BatchResult, error) {
	result := &models.BatchResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	for _, asin := range asins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := e.EvaluateMarket(ctx, asin, marketplace, category)
		if err != nil {
			result.Skipped = append(result.Skipped, models.SkipEntry{
				ASIN:   asin,
				Unit:   marketplace,
				Reason: err.Error(),
			})
			continue
		}
		result.Reports = append(result.Reports, *report)
		result.Succeeded++
	}

	e.logger.WithFields(logrus.Fields{
		"marketplace": marketplace,
		"succeeded":   result.Succeeded,
		"skipped":     len(result.Skipped),
	}).Info("Batch evaluation completed")

	return result, nil
}

// grade buckets the trend into a velocity grade: sprinter when the rank is
// improving fast and reviews keep arriving, steady when the rank at least
// holds, slow otherwise.
func (e *Evaluator) grade(trend models.TrendSignal) models.VelocityGrade {
	if trend.RankVelocity <= e.velocity.SprinterRankVelocity &&
		trend.ReviewMomentum >= e.velocity.SprinterReviewMomentum {
		return models.VelocitySprinter
	}
	if trend.RankVelocity <= 0 {
		return models.VelocitySteady
	}
	return models.VelocitySlow
}
