package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"peptide-scraper/internal/models"
)

// Store é o conjunto de operações comum ao sqlite e ao Postgres
type Store interface {
	ActiveVendors(ctx context.Context, slug string) ([]models.Vendor, error)
	UpsertVendor(ctx context.Context, v models.Vendor) error
	TouchVendor(ctx context.Context, vendorID int64, at time.Time) error
	UpsertPrice(ctx context.Context, vendorID int64, slug string, price decimal.Decimal, inStock bool, at time.Time) (int64, error)
	AppendPriceHistory(ctx context.Context, peptidePriceID int64, price decimal.Decimal) error
	InsertScrapeLog(ctx context.Context, l models.ScrapeLog) error
	PricesForPeptide(ctx context.Context, slug string) ([]models.PeptidePrice, error)
	PriceHistory(ctx context.Context, peptidePriceID int64) ([]models.PriceHistoryEntry, error)
	RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error)
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*PGStore)(nil)
)

// Open usa o Postgres quando dsn está definido; caso contrário, o sqlite em path
func Open(ctx context.Context, dsn, path string) (Store, error) {
	if dsn != "" {
		pg, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
