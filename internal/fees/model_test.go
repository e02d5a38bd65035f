package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/merchantiq/internal/config"
)

func testModel() *Model {
	return NewModel(config.FeesConfig{
		Schedules: map[string]config.FeeScheduleConfig{
			"us": {
				Currency: "USD",
				ReferralPct: map[string]float64{
					"generic":     0.15,
					"electronics": 0.08,
				},
				FulfillmentTiers: []config.FeeTierConfig{
					{Name: "small", MaxWeightGrams: 500, Fee: 3.25},
					{Name: "standard", MaxWeightGrams: 2000, Fee: 4.00},
					{Name: "large", MaxWeightGrams: 10000, Fee: 7.50},
				},
			},
		},
	})
}

func TestEstimateFees(t *testing.T) {
	m := testModel()

	tests := []struct {
		name            string
		category        string
		price           decimal.Decimal
		weightGrams     float64
		wantReferral    decimal.Decimal
		wantFulfillment decimal.Decimal
		wantTier        string
		wantOversize    bool
	}{
		{
			name:            "generic standard tier",
			category:        "generic",
			price:           decimal.NewFromFloat(37.80),
			weightGrams:     1200,
			wantReferral:    decimal.NewFromFloat(5.67),
			wantFulfillment: decimal.NewFromFloat(4.00),
			wantTier:        "standard",
		},
		{
			name:            "category specific percentage",
			category:        "electronics",
			price:           decimal.NewFromInt(100),
			weightGrams:     300,
			wantReferral:    decimal.NewFromInt(8),
			wantFulfillment: decimal.NewFromFloat(3.25),
			wantTier:        "small",
		},
		{
			name:            "weight exactly on tier bound uses that tier",
			category:        "generic",
			price:           decimal.NewFromInt(10),
			weightGrams:     500,
			wantReferral:    decimal.NewFromFloat(1.50),
			wantFulfillment: decimal.NewFromFloat(3.25),
			wantTier:        "small",
		},
		{
			name:            "heavier than every tier falls back to largest",
			category:        "generic",
			price:           decimal.NewFromInt(50),
			weightGrams:     25000,
			wantReferral:    decimal.NewFromFloat(7.50),
			wantFulfillment: decimal.NewFromFloat(7.50),
			wantTier:        "large",
			wantOversize:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := m.EstimateFees("us", tt.category, tt.price, tt.weightGrams)
			require.NoError(t, err)
			assert.True(t, est.Referral.Equal(tt.wantReferral), "referral %s, want %s", est.Referral, tt.wantReferral)
			assert.True(t, est.Fulfillment.Equal(tt.wantFulfillment), "fulfillment %s, want %s", est.Fulfillment, tt.wantFulfillment)
			assert.Equal(t, tt.wantTier, est.Tier)
			assert.Equal(t, tt.wantOversize, est.Oversize)
			assert.Equal(t, "USD", est.FulfillmentCurrency)
		})
	}
}

func TestEstimateFeesUnknownCategory(t *testing.T) {
	m := testModel()

	_, err := m.EstimateFees("us", "rare_coins", decimal.NewFromInt(10), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEstimateFeesEmptyTierTable(t *testing.T) {
	// A schedule can carry referral rows but no tiers, for example when a
	// marketplace code arrives via a CLI flag that validation never saw.
	m := NewModel(config.FeesConfig{
		Schedules: map[string]config.FeeScheduleConfig{
			"uk": {
				Currency:    "GBP",
				ReferralPct: map[string]float64{"generic": 0.15},
			},
		},
	})

	_, err := m.EstimateFees("uk", "generic", decimal.NewFromInt(10), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fulfillment tiers")
}

func TestEstimateFeesUnknownMarketplace(t *testing.T) {
	m := testModel()

	_, err := m.EstimateFees("jp", "generic", decimal.NewFromInt(10), 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownCategory)
}
