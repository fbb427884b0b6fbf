package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"peptide-scraper/internal/models"
)

// PGStore grava no Postgres do backend hospedado
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPostgres abre o pool e garante o schema
func NewPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	// Poolers como PgBouncer em modo transação não suportam prepared statements
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close fecha o pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS vendors (
		id BIGSERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		base_url TEXT NOT NULL,
		scrape_config JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_scraped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS peptide_prices (
		id BIGSERIAL PRIMARY KEY,
		vendor_id BIGINT NOT NULL REFERENCES vendors(id),
		peptide_slug TEXT NOT NULL,
		price NUMERIC(10,2) NOT NULL,
		in_stock BOOLEAN NOT NULL DEFAULT TRUE,
		last_verified_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		UNIQUE (vendor_id, peptide_slug)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		peptide_price_id BIGINT NOT NULL REFERENCES peptide_prices(id),
		price NUMERIC(10,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		vendor_id BIGINT NOT NULL REFERENCES vendors(id),
		status TEXT NOT NULL,
		products_found INTEGER NOT NULL DEFAULT 0,
		products_updated INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_price ON price_history (peptide_price_id);
	CREATE INDEX IF NOT EXISTS idx_scrape_logs_vendor ON scrape_logs (vendor_id, created_at);
	`)
	return err
}

// ActiveVendors retorna os fornecedores ativos; com slug, apenas o correspondente
func (s *PGStore) ActiveVendors(ctx context.Context, slug string) ([]models.Vendor, error) {
	query := `SELECT id, slug, name, base_url, scrape_config::text, is_active, last_scraped_at, created_at
		FROM vendors WHERE is_active`
	var args []any
	if slug != "" {
		query += " AND slug = $1"
		args = append(args, slug)
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []models.Vendor
	for rows.Next() {
		var v models.Vendor
		var rawConfig string
		var lastScraped *time.Time
		if err := rows.Scan(&v.ID, &v.Slug, &v.Name, &v.BaseURL, &rawConfig, &v.Active, &lastScraped, &v.CreatedAt); err != nil {
			return nil, err
		}
		if lastScraped != nil {
			v.LastScrapedAt = *lastScraped
		}
		if err := json.Unmarshal([]byte(rawConfig), &v.ScrapeConfig); err != nil {
			v.ConfigErr = err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// UpsertVendor cria ou atualiza um fornecedor pelo slug
func (s *PGStore) UpsertVendor(ctx context.Context, v models.Vendor) error {
	cfg, err := json.Marshal(v.ScrapeConfig)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO vendors (slug, name, base_url, scrape_config, is_active)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			base_url = EXCLUDED.base_url,
			scrape_config = EXCLUDED.scrape_config,
			is_active = EXCLUDED.is_active`,
		v.Slug, v.Name, v.BaseURL, string(cfg), v.Active,
	)
	return err
}

// TouchVendor marca a última tentativa de scraping do fornecedor
func (s *PGStore) TouchVendor(ctx context.Context, vendorID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, "UPDATE vendors SET last_scraped_at = $1 WHERE id = $2", at.UTC(), vendorID)
	return err
}

// UpsertPrice grava o preço atual de (vendorID, slug) e retorna o id da linha
func (s *PGStore) UpsertPrice(ctx context.Context, vendorID int64, slug string, price decimal.Decimal, inStock bool, at time.Time) (int64, error) {
	at = at.UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO peptide_prices (vendor_id, peptide_slug, price, in_stock, last_verified_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (vendor_id, peptide_slug) DO UPDATE SET
			price = EXCLUDED.price,
			in_stock = EXCLUDED.in_stock,
			last_verified_at = EXCLUDED.last_verified_at,
			updated_at = EXCLUDED.updated_at`,
		vendorID, slug, price.StringFixed(2), inStock, at, at,
	)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		"SELECT id FROM peptide_prices WHERE vendor_id = $1 AND peptide_slug = $2", vendorID, slug,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// AppendPriceHistory adiciona uma linha ao histórico de preços
func (s *PGStore) AppendPriceHistory(ctx context.Context, peptidePriceID int64, price decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO price_history (peptide_price_id, price) VALUES ($1, $2::numeric)",
		peptidePriceID, price.StringFixed(2),
	)
	return err
}

// InsertScrapeLog grava o resumo de um fornecedor em uma execução
func (s *PGStore) InsertScrapeLog(ctx context.Context, l models.ScrapeLog) error {
	var errMsg *string
	if l.ErrorMessage != "" {
		errMsg = &l.ErrorMessage
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_logs (run_id, vendor_id, status, products_found, products_updated, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.RunID, l.VendorID, string(l.Status), l.ProductsFound, l.ProductsUpdated, errMsg, l.DurationMS,
	)
	return err
}

// PricesForPeptide retorna os preços atuais de um peptídeo, do menor para o maior
func (s *PGStore) PricesForPeptide(ctx context.Context, slug string) ([]models.PeptidePrice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.vendor_id, v.name, p.peptide_slug, p.price::text, p.in_stock, p.last_verified_at, p.updated_at
		FROM peptide_prices p
		JOIN vendors v ON v.id = p.vendor_id
		WHERE p.peptide_slug = $1
		ORDER BY p.price ASC, v.name ASC`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []models.PeptidePrice
	for rows.Next() {
		var p models.PeptidePrice
		var price string
		var verified, updated *time.Time
		if err := rows.Scan(&p.ID, &p.VendorID, &p.VendorName, &p.PeptideSlug, &price, &p.InStock, &verified, &updated); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		if verified != nil {
			p.LastVerifiedAt = *verified
		}
		if updated != nil {
			p.UpdatedAt = *updated
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// PriceHistory retorna o histórico de uma linha de preço, do mais antigo ao mais recente
func (s *PGStore) PriceHistory(ctx context.Context, peptidePriceID int64) ([]models.PriceHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, peptide_price_id, price::text, created_at FROM price_history WHERE peptide_price_id = $1 ORDER BY id",
		peptidePriceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		var price string
		if err := rows.Scan(&e.ID, &e.PeptidePriceID, &price, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentScrapeLogs retorna os últimos registros de execução
func (s *PGStore) RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.run_id, l.vendor_id, v.name, l.status, l.products_found, l.products_updated,
			COALESCE(l.error_message, ''), l.duration_ms, l.created_at
		FROM scrape_logs l
		JOIN vendors v ON v.id = l.vendor_id
		ORDER BY l.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var status string
		if err := rows.Scan(&l.ID, &l.RunID, &l.VendorID, &l.VendorName, &status, &l.ProductsFound, &l.ProductsUpdated,
			&l.ErrorMessage, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Status = models.ScrapeStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
