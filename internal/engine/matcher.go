package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/models"
	"github.com/quantrail/merchantiq/internal/store"
)

// SeriesSource supplies snapshot histories. Implemented by the snapshot
// store and by fixtures in tests.
type SeriesSource interface {
	GetSeries(ctx context.Context, asin, marketplace string) (models.SnapshotSeries, error)
}

// Matcher enumerates cross-marketplace opportunities for one product. Pair
// evaluations are independent and run on a small worker pool; the final
// ranking is a single deterministic sort after all pairs complete.
type Matcher struct {
	source      SeriesSource
	calc        *ProfitCalculator
	scorer      *RiskScorer
	classifier  *Classifier
	trendWindow time.Duration
	workers     int
	logger      *logrus.Logger
}

// NewMatcher wires the matcher from its collaborators.
func NewMatcher(source SeriesSource, calc *ProfitCalculator, scorer *RiskScorer, classifier *Classifier, trendWindow time.Duration, workers int, logger *logrus.Logger) *Matcher {
	if workers <= 0 {
		workers = 4
	}
	return &Matcher{
		source:      source,
		calc:        calc,
		scorer:      scorer,
		classifier:  classifier,
		trendWindow: trendWindow,
		workers:     workers,
		logger:      logger,
	}
}

type pairJob struct {
	buy  models.Quote
	sell models.SnapshotSeries
}

// FindOpportunities evaluates every ordered marketplace pair with a current
// quote on both sides. Marketplaces without history and pairs that fail a
// local calculation are recorded as skip entries, never dropped silently.
// Cancellation is cooperative per pair: an in-flight evaluation finishes
// before the run stops.
func (m *Matcher) FindOpportunities(ctx context.Context, asin string, marketplaces []string, category string) (*models.ArbitrageRun, error) {
	run := &models.ArbitrageRun{
		RunID:     uuid.New().String(),
		ASIN:      asin,
		StartedAt: time.Now().UTC(),
	}

	series := make(map[string]models.SnapshotSeries)
	current := make(map[string]models.Quote)
	for _, mp := range marketplaces {
		s, err := m.source.GetSeries(ctx, asin, mp)
		if err != nil {
			if errors.Is(err, store.ErrNoHistory) {
				run.Skipped = append(run.Skipped, models.SkipEntry{ASIN: asin, Unit: mp, Reason: "no history"})
				continue
			}
			return nil, err
		}
		cur, ok := s.Current()
		if !ok {
			run.Skipped = append(run.Skipped, models.SkipEntry{ASIN: asin, Unit: mp, Reason: "no history"})
			continue
		}
		series[mp] = s
		current[mp] = cur
	}

	var jobs []pairJob
	for _, buyMP := range marketplaces {
		buyQuote, ok := current[buyMP]
		if !ok {
			continue
		}
		for _, sellMP := range marketplaces {
			if sellMP == buyMP {
				continue
			}
			if _, ok := current[sellMP]; !ok {
				continue
			}
			jobs = append(jobs, pairJob{buy: buyQuote, sell: series[sellMP]})
		}
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobC = make(chan pairJob)
	)
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobC {
				opp, skip := m.evaluatePair(asin, job, category)
				mu.Lock()
				if skip != nil {
					run.Skipped = append(run.Skipped, *skip)
				} else {
					run.Opportunities = append(run.Opportunities, *opp)
					run.Evaluated++
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobC <- job:
		}
	}
	close(jobC)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortOpportunities(run.Opportunities)
	sortSkips(run.Skipped)

	m.logger.WithFields(logrus.Fields{
		"asin":          asin,
		"opportunities": len(run.Opportunities),
		"skipped":       len(run.Skipped),
	}).Info("Cross-marketplace evaluation completed")

	return run, nil
}

func (m *Matcher) evaluatePair(asin string, job pairJob, category string) (*models.ArbitrageOpportunity, *models.SkipEntry) {
	unit := job.buy.Marketplace + "->" + job.sell.Marketplace

	sellQuote, _ := job.sell.Current()
	profit, err := m.calc.Compute(job.buy, sellQuote, category)
	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"asin": asin,
			"pair": unit,
		}).Debug("Pair skipped")
		return nil, &models.SkipEntry{ASIN: asin, Unit: unit, Reason: err.Error()}
	}

	// Risk is assessed on the sell side: that is where the position is
	// exposed to price wars, seasonality and seller collapse.
	trend := ExtractTrend(job.sell, m.trendWindow)
	risk := m.scorer.Score(job.sell, trend, nil)
	verdict, _ := m.classifier.Classify(profit, risk)

	buyPrice, _ := job.buy.EffectivePrice()
	sellPrice, _ := sellQuote.EffectivePrice()

	return &models.ArbitrageOpportunity{
		ID:              uuid.New().String(),
		ASIN:            asin,
		BuyMarketplace:  job.buy.Marketplace,
		SellMarketplace: sellQuote.Marketplace,
		BuyPrice:        buyPrice,
		BuyCurrency:     job.buy.Currency,
		SellPrice:       sellPrice,
		SellCurrency:    sellQuote.Currency,
		Profit:          profit,
		Risk:            risk,
		Verdict:         verdict,
		DetectedAt:      time.Now().UTC(),
	}, nil
}

// sortOpportunities ranks by margin descending with a stable tie-break on
// buy then sell marketplace code, so identical inputs always produce an
// identical ordering. Opportunities without a defined margin sort last.
func sortOpportunities(opps []models.ArbitrageOpportunity) {
	sort.Slice(opps, func(i, j int) bool {
		mi, mj := opps[i].Profit.Margin, opps[j].Profit.Margin
		switch {
		case mi != nil && mj == nil:
			return true
		case mi == nil && mj != nil:
			return false
		case mi != nil && mj != nil && !mi.Equal(*mj):
			return mi.GreaterThan(*mj)
		}
		if opps[i].BuyMarketplace != opps[j].BuyMarketplace {
			return opps[i].BuyMarketplace < opps[j].BuyMarketplace
		}
		return opps[i].SellMarketplace < opps[j].SellMarketplace
	})
}

func sortSkips(skips []models.SkipEntry) {
	sort.Slice(skips, func(i, j int) bool {
		if skips[i].ASIN != skips[j].ASIN {
			return skips[i].ASIN < skips[j].ASIN
		}
		return skips[i].Unit < skips[j].Unit
	})
}
