package engine

import (
	"time"

	"github.com/quantrail/merchantiq/internal/models"
)

const hoursPerDay = 24.0

// ExtractTrend derives rank velocity and review momentum from the
// observations whose time falls within window of the latest observation.
//
// Rank velocity is the least-squares slope of rank against time in days;
// negative velocity means the rank is improving. With exactly two points
// the slope degenerates to the raw delta over elapsed time. A single
// observation yields a zero signal with SampleCount 1 rather than an
// error: the engine never requires a minimum history length to produce a
// result, only to produce a meaningful one.
func ExtractTrend(series models.SnapshotSeries, window time.Duration) models.TrendSignal {
	latest, ok := series.Current()
	if !ok {
		return models.TrendSignal{}
	}

	cutoff := latest.ObservedAt.Add(-window)
	var points []models.Quote
	for _, q := range series.Quotes {
		if !q.ObservedAt.Before(cutoff) {
			points = append(points, q)
		}
	}

	signal := models.TrendSignal{
		SampleCount: len(points),
		WindowStart: cutoff,
		WindowEnd:   latest.ObservedAt,
	}
	if len(points) < 2 {
		return signal
	}

	first := points[0]
	last := points[len(points)-1]
	elapsedDays := last.ObservedAt.Sub(first.ObservedAt).Hours() / hoursPerDay
	if elapsedDays <= 0 {
		return signal
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, q := range points {
		xs[i] = q.ObservedAt.Sub(first.ObservedAt).Hours() / hoursPerDay
		ys[i] = float64(q.Rank)
	}
	signal.RankVelocity = linearSlope(xs, ys)
	signal.ReviewMomentum = float64(last.ReviewCount-first.ReviewCount) / elapsedDays

	return signal
}
