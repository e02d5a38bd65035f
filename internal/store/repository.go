// Package store persists product snapshot series in Postgres. Appends are
// idempotent per calendar day: a second observation for the same
// (ASIN, marketplace) on the same day overwrites that day's record, while a
// separate latest pointer always tracks the newest quote.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quantrail/merchantiq/internal/models"
)

// ErrNoHistory is returned when a (product, marketplace) pair has never
// been observed. It is a local failure tied to one unit, never fatal to a
// batch run.
var ErrNoHistory = errors.New("no snapshot history")

// DatabasePool is the subset of pgxpool.Pool the repository needs; it
// allows a mock pool in tests.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository handles snapshot reads and writes.
type Repository struct {
	pool DatabasePool
}

// NewRepository creates a snapshot repository on a database pool.
func NewRepository(pool DatabasePool) *Repository {
	return &Repository{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS product_snapshots (
	asin          text        NOT NULL,
	marketplace   text        NOT NULL,
	observed_day  date        NOT NULL,
	observed_at   timestamptz NOT NULL,
	currency      text        NOT NULL,
	list_price    numeric     NOT NULL,
	buy_box_price numeric,
	rank          integer     NOT NULL,
	review_count  integer     NOT NULL,
	rating        double precision NOT NULL,
	seller_count  integer     NOT NULL,
	fulfillment   text        NOT NULL DEFAULT '',
	weight_grams  double precision NOT NULL DEFAULT 0,
	PRIMARY KEY (asin, marketplace, observed_day)
);

CREATE TABLE IF NOT EXISTS latest_quotes (
	asin          text        NOT NULL,
	marketplace   text        NOT NULL,
	observed_at   timestamptz NOT NULL,
	currency      text        NOT NULL,
	list_price    numeric     NOT NULL,
	buy_box_price numeric,
	rank          integer     NOT NULL,
	review_count  integer     NOT NULL,
	rating        double precision NOT NULL,
	seller_count  integer     NOT NULL,
	fulfillment   text        NOT NULL DEFAULT '',
	weight_grams  double precision NOT NULL DEFAULT 0,
	PRIMARY KEY (asin, marketplace)
);
`

// Migrate creates the snapshot tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}
	return nil
}

// GetSeries returns the full history for a (product, marketplace) pair,
// ordered by observation time ascending.
func (r *Repository) GetSeries(ctx context.Context, asin, marketplace string) (models.SnapshotSeries, error) {
	query := `
		SELECT asin, marketplace, currency, list_price, buy_box_price,
			rank, review_count, rating, seller_count, fulfillment, weight_grams, observed_at
		FROM product_snapshots
		WHERE asin = $1 AND marketplace = $2
		ORDER BY observed_at ASC
	`

	rows, err := r.pool.Query(ctx, query, asin, marketplace)
	if err != nil {
		return models.SnapshotSeries{}, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	series := models.SnapshotSeries{ASIN: asin, Marketplace: marketplace}
	for rows.Next() {
		var q models.Quote
		err := rows.Scan(
			&q.ASIN, &q.Marketplace, &q.Currency, &q.ListPrice, &q.BuyBoxPrice,
			&q.Rank, &q.ReviewCount, &q.Rating, &q.SellerCount, &q.Fulfillment,
			&q.WeightGrams, &q.ObservedAt,
		)
		if err != nil {
			return models.SnapshotSeries{}, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		series.Quotes = append(series.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		return models.SnapshotSeries{}, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	if len(series.Quotes) == 0 {
		return models.SnapshotSeries{}, fmt.Errorf("%w: %s on %s", ErrNoHistory, asin, marketplace)
	}

	return series, nil
}

// GetLatest returns the newest quote for a (product, marketplace) pair.
func (r *Repository) GetLatest(ctx context.Context, asin, marketplace string) (models.Quote, error) {
	query := `
		SELECT asin, marketplace, currency, list_price, buy_box_price,
			rank, review_count, rating, seller_count, fulfillment, weight_grams, observed_at
		FROM latest_quotes
		WHERE asin = $1 AND marketplace = $2
	`

	var q models.Quote
	err := r.pool.QueryRow(ctx, query, asin, marketplace).Scan(
		&q.ASIN, &q.Marketplace, &q.Currency, &q.ListPrice, &q.BuyBoxPrice,
		&q.Rank, &q.ReviewCount, &q.Rating, &q.SellerCount, &q.Fulfillment,
		&q.WeightGrams, &q.ObservedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Quote{}, fmt.Errorf("%w: %s on %s", ErrNoHistory, asin, marketplace)
		}
		return models.Quote{}, fmt.Errorf("failed to query latest quote: %w", err)
	}

	return q, nil
}

// Append stores a quote. The day record is upserted on the observation
// day, so repeated appends within one calendar day overwrite rather than
// duplicate; the latest pointer moves whenever the quote is at least as
// new as the stored one, independent of the day-granularity dedup.
func (r *Repository) Append(ctx context.Context, quote models.Quote) error {
	dayQuery := `
		INSERT INTO product_snapshots (
			asin, marketplace, observed_day, observed_at, currency, list_price,
			buy_box_price, rank, review_count, rating, seller_count, fulfillment, weight_grams
		) VALUES ($1, $2, $3::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (asin, marketplace, observed_day) DO UPDATE SET
			observed_at = EXCLUDED.observed_at,
			currency = EXCLUDED.currency,
			list_price = EXCLUDED.list_price,
			buy_box_price = EXCLUDED.buy_box_price,
			rank = EXCLUDED.rank,
			review_count = EXCLUDED.review_count,
			rating = EXCLUDED.rating,
			seller_count = EXCLUDED.seller_count,
			fulfillment = EXCLUDED.fulfillment,
			weight_grams = EXCLUDED.weight_grams
	`
	_, err := r.pool.Exec(ctx, dayQuery,
		quote.ASIN, quote.Marketplace, quote.ObservedAt, quote.Currency, quote.ListPrice,
		quote.BuyBoxPrice, quote.Rank, quote.ReviewCount, quote.Rating, quote.SellerCount,
		quote.Fulfillment, quote.WeightGrams,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	latestQuery := `
		INSERT INTO latest_quotes (
			asin, marketplace, observed_at, currency, list_price,
			buy_box_price, rank, review_count, rating, seller_count, fulfillment, weight_grams
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (asin, marketplace) DO UPDATE SET
			observed_at = EXCLUDED.observed_at,
			currency = EXCLUDED.currency,
			list_price = EXCLUDED.list_price,
			buy_box_price = EXCLUDED.buy_box_price,
			rank = EXCLUDED.rank,
			review_count = EXCLUDED.review_count,
			rating = EXCLUDED.rating,
			seller_count = EXCLUDED.seller_count,
			fulfillment = EXCLUDED.fulfillment,
			weight_grams = EXCLUDED.weight_grams
		WHERE latest_quotes.observed_at <= EXCLUDED.observed_at
	`
	_, err = r.pool.Exec(ctx, latestQuery,
		quote.ASIN, quote.Marketplace, quote.ObservedAt, quote.Currency, quote.ListPrice,
		quote.BuyBoxPrice, quote.Rank, quote.ReviewCount, quote.Rating, quote.SellerCount,
		quote.Fulfillment, quote.WeightGrams,
	)
	if err != nil {
		return fmt.Errorf("failed to update latest quote: %w", err)
	}

	return nil
}

// ListMarketplaces returns the marketplaces with any history for a product,
// sorted ascending.
func (r *Repository) ListMarketplaces(ctx context.Context, asin string) ([]string, error) {
	query := `
		SELECT DISTINCT marketplace
		FROM product_snapshots
		WHERE asin = $1
		ORDER BY marketplace ASC
	`

	rows, err := r.pool.Query(ctx, query, asin)
	if err != nil {
		return nil, fmt.Errorf("failed to query marketplaces: %w", err)
	}
	defer rows.Close()

	var marketplaces []string
	for rows.Next() {
		var mp string
		if err := rows.Scan(&mp); err != nil {
			return nil, fmt.Errorf("failed to scan marketplace row: %w", err)
		}
		marketplaces = append(marketplaces, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marketplace rows: %w", err)
	}

	return marketplaces, nil
}
