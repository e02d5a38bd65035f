package engine

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/fees"
	"github.com/quantrail/merchantiq/internal/fx"
	"github.com/quantrail/merchantiq/internal/models"
)

var testObservedAt = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		SettlementCurrency: "USD",
		TrendWindowDays:    30,
		RiskThresholds:     config.RiskThresholds{Low: 0.35, High: 0.75},
		ROIThresholds:      config.ROIThresholds{Strong: 0.30},
		RiskWeights: map[string]float64{
			models.RiskPriceWar:    0.30,
			models.RiskSeasonality: 0.20,
			models.RiskReturnRate:  0.25,
			models.RiskIP:          0.25,
		},
		RiskScales: config.RiskScales{PriceCV: 0.25, RankCV: 0.50, RatingVol: 1.0},
		Velocity:   config.VelocityConfig{SprinterRankVelocity: -50.0, SprinterReviewMomentum: 1.0},
		Workers:    4,
	}
}

func testCalculator() *ProfitCalculator {
	converter := fx.NewConverter(config.FXConfig{
		Rates: []config.FXRateConfig{
			{From: "EUR", To: "USD", Rate: 1.08, EffectiveAt: "2026-01-01T00:00:00Z"},
			{From: "GBP", To: "USD", Rate: 1.27, EffectiveAt: "2026-01-01T00:00:00Z"},
		},
	})
	feeModel := fees.NewModel(config.FeesConfig{
		Schedules: map[string]config.FeeScheduleConfig{
			"us": {
				Currency:    "USD",
				ReferralPct: map[string]float64{"generic": 0.15},
				FulfillmentTiers: []config.FeeTierConfig{
					{Name: "standard", MaxWeightGrams: 2000, Fee: 4.00},
				},
			},
			"de": {
				// Fulfillment billed in USD even though listings are in EUR.
				Currency:    "USD",
				ReferralPct: map[string]float64{"generic": 0.15},
				FulfillmentTiers: []config.FeeTierConfig{
					{Name: "standard", MaxWeightGrams: 2000, Fee: 4.00},
				},
			},
		},
	})
	return NewProfitCalculator(converter, feeModel, "USD")
}

func feesConfigWithoutGeneric() config.FeesConfig {
	return config.FeesConfig{
		Schedules: map[string]config.FeeScheduleConfig{
			"de": {
				Currency:    "USD",
				ReferralPct: map[string]float64{"electronics": 0.08},
				FulfillmentTiers: []config.FeeTierConfig{
					{Name: "standard", MaxWeightGrams: 2000, Fee: 4.00},
				},
			},
		},
	}
}

// quoteOpt mutates a baseline quote in test fixtures.
type quoteOpt func(*models.Quote)

func withBuyBox(price float64) quoteOpt {
	return func(q *models.Quote) {
		q.BuyBoxPrice = decimal.NewNullDecimal(decimal.NewFromFloat(price))
	}
}

func withNoPrices() quoteOpt {
	return func(q *models.Quote) {
		q.ListPrice = decimal.Zero
		q.BuyBoxPrice = decimal.NullDecimal{}
	}
}

func withObservedAt(at time.Time) quoteOpt {
	return func(q *models.Quote) { q.ObservedAt = at }
}

func withRank(rank int) quoteOpt {
	return func(q *models.Quote) { q.Rank = rank }
}

func withReviews(count int) quoteOpt {
	return func(q *models.Quote) { q.ReviewCount = count }
}

func withRating(rating float64) quoteOpt {
	return func(q *models.Quote) { q.Rating = rating }
}

func withSellers(count int) quoteOpt {
	return func(q *models.Quote) { q.SellerCount = count }
}

func makeQuote(marketplace, currency string, listPrice float64, opts ...quoteOpt) models.Quote {
	q := models.Quote{
		ASIN:        "B000TEST01",
		Marketplace: marketplace,
		Currency:    currency,
		ListPrice:   decimal.NewFromFloat(listPrice),
		Rank:        5000,
		ReviewCount: 100,
		Rating:      4.5,
		SellerCount: 5,
		Fulfillment: "fba",
		WeightGrams: 800,
		ObservedAt:  testObservedAt,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

func makeSeries(marketplace string, quotes ...models.Quote) models.SnapshotSeries {
	return models.SnapshotSeries{
		ASIN:        "B000TEST01",
		Marketplace: marketplace,
		Quotes:      quotes,
	}
}
