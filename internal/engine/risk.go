package engine

import (
	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/models"
)

// sellerCollapseFloor is the minimum historical seller count for a drop to
// a single seller to count as a collapse rather than a thin listing.
const sellerCollapseFloor = 3

// RiskScorer produces normalized risk scores per dimension plus a weighted
// aggregate. Weights and normalization scales come from configuration; the
// formula shapes are fixed here.
type RiskScorer struct {
	weights map[string]float64
	scales  config.RiskScales
}

// NewRiskScorer builds a scorer from engine configuration. The weight
// table is assumed validated (non-negative, summing to 1).
func NewRiskScorer(cfg config.EngineConfig) *RiskScorer {
	return &RiskScorer{weights: cfg.RiskWeights, scales: cfg.RiskScales}
}

// Score computes every risk dimension from the series and trend, folds in
// any externally pre-computed signals, and aggregates with the configured
// weights. External signals override a computed dimension of the same name
// and are clipped to [0,1]; dimensions without a configured weight do not
// contribute to the aggregate.
func (s *RiskScorer) Score(series models.SnapshotSeries, trend models.TrendSignal, external map[string]float64) models.RiskScore {
	score := models.RiskScore{Dimensions: make(map[string]float64)}

	score.Dimensions[models.RiskPriceWar] = s.priceWar(series)
	seasonality, proxy := s.seasonality(series)
	score.Dimensions[models.RiskSeasonality] = seasonality
	if proxy {
		score.LowConfidence = append(score.LowConfidence, models.RiskSeasonality)
	}
	score.Dimensions[models.RiskReturnRate] = s.returnRate(series)
	score.Dimensions[models.RiskIP] = s.ipRisk(series)

	for name, v := range external {
		score.Dimensions[name] = clip01(v)
	}

	agg := 0.0
	for dim, w := range s.weights {
		agg += w * score.Dimensions[dim]
	}
	score.Aggregate = clip01(agg)

	return score
}

// priceWar scores price instability: the coefficient of variation of the
// effective price over the window, normalized by the configured scale.
func (s *RiskScorer) priceWar(series models.SnapshotSeries) float64 {
	var prices []float64
	for _, q := range series.Quotes {
		if p, ok := q.EffectivePrice(); ok {
			prices = append(prices, p.InexactFloat64())
		}
	}
	if len(prices) < 2 || s.scales.PriceCV <= 0 {
		return 0
	}
	return clip01(coefVariation(prices) / s.scales.PriceCV)
}

// seasonality scores rank variance for the latest observation's calendar
// month across prior years. Without at least two prior-year observations in
// that month it falls back to the full-window rank variance as a proxy and
// reports low confidence.
func (s *RiskScorer) seasonality(series models.SnapshotSeries) (float64, bool) {
	latest, ok := series.Current()
	if !ok || s.scales.RankCV <= 0 {
		return 0, false
	}

	month := latest.ObservedAt.Month()
	year := latest.ObservedAt.Year()

	var sameMonth []float64
	for _, q := range series.Quotes {
		if q.ObservedAt.Month() == month && q.ObservedAt.Year() < year {
			sameMonth = append(sameMonth, float64(q.Rank))
		}
	}
	if len(sameMonth) >= 2 {
		return clip01(coefVariation(sameMonth) / s.scales.RankCV), false
	}

	var ranks []float64
	for _, q := range series.Quotes {
		ranks = append(ranks, float64(q.Rank))
	}
	if len(ranks) < 2 {
		return 0, true
	}
	return clip01(coefVariation(ranks) / s.scales.RankCV), true
}

// returnRate proxies return risk from the rating distribution: a low
// average rating and volatile ratings both push the score up.
func (s *RiskScorer) returnRate(series models.SnapshotSeries) float64 {
	var ratings []float64
	for _, q := range series.Quotes {
		if q.Rating > 0 {
			ratings = append(ratings, q.Rating)
		}
	}
	if len(ratings) == 0 {
		return 0
	}

	const maxRating = 5.0
	gap := (maxRating - mean(ratings)) / maxRating

	vol := 0.0
	if s.scales.RatingVol > 0 {
		vol = clip01(stdDev(ratings) / s.scales.RatingVol)
	}

	return clip01(0.7*gap + 0.3*vol)
}

// ipRisk is a step function, not a graded score: 1 when the seller count
// collapsed from a healthy market to a single seller within the series,
// otherwise 0. A collapse is a binary gating event that must not be
// averaged away by the other dimensions.
func (s *RiskScorer) ipRisk(series models.SnapshotSeries) float64 {
	latest, ok := series.Current()
	if !ok || latest.SellerCount != 1 {
		return 0
	}
	for _, q := range series.Quotes[:len(series.Quotes)-1] {
		if q.SellerCount >= sellerCollapseFloor {
			return 1
		}
	}
	return 0
}
