package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/merchantiq/internal/models"
	"github.com/quantrail/merchantiq/internal/store"
)

func newTestEvaluator(source SeriesSource) *Evaluator {
	cfg := testEngineConfig()
	return NewEvaluator(
		source,
		testCalculator(),
		NewRiskScorer(cfg),
		NewClassifier(cfg),
		cfg,
		testLogger(),
	)
}

func TestEvaluateMarket(t *testing.T) {
	source := &fakeSource{series: map[string]models.SnapshotSeries{
		"de": makeSeries("de",
			makeQuote("de", "EUR", 20.00, withObservedAt(testObservedAt.Add(-24*time.Hour)), withBuyBox(34.00)),
			makeQuote("de", "EUR", 20.00, withBuyBox(35.00)),
		),
	}}
	e := newTestEvaluator(source)

	report, err := e.EvaluateMarket(context.Background(), "B000TEST01", "de", "generic")
	require.NoError(t, err)

	assert.Equal(t, "B000TEST01", report.ASIN)
	assert.Equal(t, "de", report.Marketplace)
	assert.Equal(t, Version, report.EngineVersion)
	assert.NotEmpty(t, report.VerdictRule)
	assert.Equal(t, 2, report.Trend.SampleCount)

	// Acquire at 20 EUR (21.60 USD), sell at 35 EUR (37.80 USD), fees
	// 5.67 + 4.00: net 6.53 USD, ROI just above 0.30 with low risk.
	require.NotNil(t, report.Profit.ROI)
	assert.Equal(t, models.VerdictGo, report.Verdict)
}

func TestEvaluateMarketNoHistory(t *testing.T) {
	e := newTestEvaluator(&fakeSource{series: map[string]models.SnapshotSeries{}})

	_, err := e.EvaluateMarket(context.Background(), "B000TEST01", "de", "generic")
	assert.ErrorIs(t, err, store.ErrNoHistory)
}

func TestEvaluateBatchRecordsSkips(t *testing.T) {
	source := &perASINSource{series: map[string]models.SnapshotSeries{
		"B000GOOD01": makeSeries("de", makeQuote("de", "EUR", 20.00, withBuyBox(35.00))),
	}}
	e := newTestEvaluator(source)

	result, err := e.EvaluateBatch(context.Background(), []string{"B000GOOD01", "B000GONE02"}, "de", "generic")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, "B000GOOD01", result.Reports[0].ASIN)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "B000GONE02", result.Skipped[0].ASIN)
	assert.Equal(t, "de", result.Skipped[0].Unit)
	assert.Contains(t, result.Skipped[0].Reason, "no snapshot history")
}

func TestGrade(t *testing.T) {
	e := newTestEvaluator(&fakeSource{})

	tests := []struct {
		name  string
		trend models.TrendSignal
		want  models.VelocityGrade
	}{
		{
			name:  "fast improvement with reviews is sprinter",
			trend: models.TrendSignal{RankVelocity: -120, ReviewMomentum: 2.5},
			want:  models.VelocitySprinter,
		},
		{
			name:  "fast improvement without reviews is steady",
			trend: models.TrendSignal{RankVelocity: -120, ReviewMomentum: 0.2},
			want:  models.VelocitySteady,
		},
		{
			name:  "flat rank is steady",
			trend: models.TrendSignal{RankVelocity: 0, ReviewMomentum: 0},
			want:  models.VelocitySteady,
		},
		{
			name:  "worsening rank is slow",
			trend: models.TrendSignal{RankVelocity: 35, ReviewMomentum: 3},
			want:  models.VelocitySlow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.grade(tt.trend))
		})
	}
}

// perASINSource keys fixtures by ASIN instead of marketplace.
type perASINSource struct {
	series map[string]models.SnapshotSeries
}

func (f *perASINSource) GetSeries(_ context.Context, asin, _ string) (models.SnapshotSeries, error) {
	s, ok := f.series[asin]
	if !ok {
		return models.SnapshotSeries{}, store.ErrNoHistory
	}
	return s, nil
}
