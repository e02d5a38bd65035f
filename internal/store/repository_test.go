package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/merchantiq/internal/models"
)

func snapshotColumns() []string {
	return []string{
		"asin", "marketplace", "currency", "list_price", "buy_box_price",
		"rank", "review_count", "rating", "seller_count", "fulfillment",
		"weight_grams", "observed_at",
	}
}

func testQuote(observedAt time.Time) models.Quote {
	return models.Quote{
		ASIN:        "B000TEST01",
		Marketplace: "us",
		Currency:    "USD",
		ListPrice:   decimal.NewFromFloat(19.99),
		BuyBoxPrice: decimal.NewNullDecimal(decimal.NewFromFloat(18.49)),
		Rank:        4200,
		ReviewCount: 120,
		Rating:      4.4,
		SellerCount: 6,
		Fulfillment: "fba",
		WeightGrams: 750,
		ObservedAt:  observedAt,
	}
}

func TestGetSeries(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	older := time.Date(2026, 6, 14, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(snapshotColumns()).
		AddRow("B000TEST01", "us", "USD", decimal.NewFromFloat(19.99),
			decimal.NewNullDecimal(decimal.NewFromFloat(18.49)), 4200, 120, 4.4, 6, "fba", 750.0, older).
		AddRow("B000TEST01", "us", "USD", decimal.NewFromFloat(20.49),
			decimal.NullDecimal{}, 4100, 125, 4.4, 5, "fba", 750.0, newer)

	mockPool.ExpectQuery("SELECT asin, marketplace, currency").
		WithArgs("B000TEST01", "us").
		WillReturnRows(rows)

	repo := NewRepository(mockPool)
	series, err := repo.GetSeries(context.Background(), "B000TEST01", "us")
	require.NoError(t, err)

	assert.Equal(t, "B000TEST01", series.ASIN)
	assert.Equal(t, "us", series.Marketplace)
	require.Equal(t, 2, series.Len())

	current, ok := series.Current()
	require.True(t, ok)
	assert.Equal(t, newer, current.ObservedAt)
	assert.False(t, current.BuyBoxPrice.Valid)

	price, ok := current.EffectivePrice()
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(20.49)))

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetSeriesNoHistory(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT asin, marketplace, currency").
		WithArgs("B000GONE01", "us").
		WillReturnRows(pgxmock.NewRows(snapshotColumns()))

	repo := NewRepository(mockPool)
	_, err = repo.GetSeries(context.Background(), "B000GONE01", "us")
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetLatest(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	observedAt := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(snapshotColumns()).
		AddRow("B000TEST01", "us", "USD", decimal.NewFromFloat(19.99),
			decimal.NewNullDecimal(decimal.NewFromFloat(18.49)), 4200, 120, 4.4, 6, "fba", 750.0, observedAt)

	mockPool.ExpectQuery("SELECT asin, marketplace, currency").
		WithArgs("B000TEST01", "us").
		WillReturnRows(rows)

	repo := NewRepository(mockPool)
	quote, err := repo.GetLatest(context.Background(), "B000TEST01", "us")
	require.NoError(t, err)
	assert.Equal(t, "B000TEST01", quote.ASIN)
	assert.Equal(t, observedAt, quote.ObservedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetLatestNoHistory(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT asin, marketplace, currency").
		WithArgs("B000GONE01", "us").
		WillReturnRows(pgxmock.NewRows(snapshotColumns()))

	repo := NewRepository(mockPool)
	_, err = repo.GetLatest(context.Background(), "B000GONE01", "us")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestAppend(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	quote := testQuote(time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC))

	mockPool.ExpectExec("INSERT INTO product_snapshots").
		WithArgs(quote.ASIN, quote.Marketplace, quote.ObservedAt, quote.Currency, quote.ListPrice,
			quote.BuyBoxPrice, quote.Rank, quote.ReviewCount, quote.Rating, quote.SellerCount,
			quote.Fulfillment, quote.WeightGrams).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mockPool.ExpectExec("INSERT INTO latest_quotes").
		WithArgs(quote.ASIN, quote.Marketplace, quote.ObservedAt, quote.Currency, quote.ListPrice,
			quote.BuyBoxPrice, quote.Rank, quote.ReviewCount, quote.Rating, quote.SellerCount,
			quote.Fulfillment, quote.WeightGrams).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepository(mockPool)
	require.NoError(t, repo.Append(context.Background(), quote))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAppendDayUpsertFails(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	quote := testQuote(time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC))

	mockPool.ExpectExec("INSERT INTO product_snapshots").
		WithArgs(quote.ASIN, quote.Marketplace, quote.ObservedAt, quote.Currency, quote.ListPrice,
			quote.BuyBoxPrice, quote.Rank, quote.ReviewCount, quote.Rating, quote.SellerCount,
			quote.Fulfillment, quote.WeightGrams).
		WillReturnError(assert.AnError)

	repo := NewRepository(mockPool)
	err = repo.Append(context.Background(), quote)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert snapshot")
}

func TestMigrate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS product_snapshots").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	repo := NewRepository(mockPool)
	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListMarketplaces(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	rows := pgxmock.NewRows([]string{"marketplace"}).
		AddRow("de").
		AddRow("uk").
		AddRow("us")

	mockPool.ExpectQuery("SELECT DISTINCT marketplace").
		WithArgs("B000TEST01").
		WillReturnRows(rows)

	repo := NewRepository(mockPool)
	marketplaces, err := repo.ListMarketplaces(context.Background(), "B000TEST01")
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "uk", "us"}, marketplaces)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
