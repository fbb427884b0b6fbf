package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"peptide-scraper/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound é retornado quando o registro não existe
var ErrNotFound = errors.New("not found")

// DB encapsula a conexão com o banco sqlite
type DB struct {
	conn *sql.DB
}

// New cria uma nova instância do banco de dados.
// Use ":memory:" para um banco em memória (testes).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// Uma única conexão evita "database is locked" e mantém o banco em memória vivo
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vendors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		base_url TEXT NOT NULL,
		scrape_config TEXT NOT NULL DEFAULT '{}',
		is_active BOOLEAN DEFAULT 1,
		last_scraped_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS peptide_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vendor_id INTEGER NOT NULL REFERENCES vendors(id),
		peptide_slug TEXT NOT NULL,
		price REAL NOT NULL,
		in_stock BOOLEAN DEFAULT 1,
		last_verified_at DATETIME,
		updated_at DATETIME,
		UNIQUE (vendor_id, peptide_slug)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		peptide_price_id INTEGER NOT NULL REFERENCES peptide_prices(id),
		price REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		vendor_id INTEGER NOT NULL REFERENCES vendors(id),
		status TEXT NOT NULL,
		products_found INTEGER NOT NULL DEFAULT 0,
		products_updated INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_price ON price_history (peptide_price_id);
	CREATE INDEX IF NOT EXISTS idx_scrape_logs_vendor ON scrape_logs (vendor_id, created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// ActiveVendors retorna os fornecedores ativos; com slug, apenas o correspondente
func (db *DB) ActiveVendors(ctx context.Context, slug string) ([]models.Vendor, error) {
	query := "SELECT id, slug, name, base_url, scrape_config, is_active, last_scraped_at, created_at FROM vendors WHERE is_active = 1"
	var args []any
	if slug != "" {
		query += " AND slug = ?"
		args = append(args, slug)
	}
	query += " ORDER BY id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []models.Vendor
	for rows.Next() {
		var v models.Vendor
		var rawConfig string
		var lastScraped sql.NullTime
		if err := rows.Scan(&v.ID, &v.Slug, &v.Name, &v.BaseURL, &rawConfig, &v.Active, &lastScraped, &v.CreatedAt); err != nil {
			return nil, err
		}
		if lastScraped.Valid {
			v.LastScrapedAt = lastScraped.Time
		}
		if err := json.Unmarshal([]byte(rawConfig), &v.ScrapeConfig); err != nil {
			// Rejeitada na validação com a causa original
			v.ConfigErr = err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// UpsertVendor cria ou atualiza um fornecedor pelo slug
func (db *DB) UpsertVendor(ctx context.Context, v models.Vendor) error {
	cfg, err := json.Marshal(v.ScrapeConfig)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO vendors (slug, name, base_url, scrape_config, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			scrape_config = excluded.scrape_config,
			is_active = excluded.is_active`,
		v.Slug, v.Name, v.BaseURL, string(cfg), v.Active,
	)
	return err
}

// TouchVendor marca a última tentativa de scraping do fornecedor
func (db *DB) TouchVendor(ctx context.Context, vendorID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, "UPDATE vendors SET last_scraped_at = ? WHERE id = ?", at.UTC(), vendorID)
	return err
}

// UpsertPrice grava o preço atual de (vendorID, slug) e retorna o id da linha
func (db *DB) UpsertPrice(ctx context.Context, vendorID int64, slug string, price decimal.Decimal, inStock bool, at time.Time) (int64, error) {
	at = at.UTC()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO peptide_prices (vendor_id, peptide_slug, price, in_stock, last_verified_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (vendor_id, peptide_slug) DO UPDATE SET
			price = excluded.price,
			in_stock = excluded.in_stock,
			last_verified_at = excluded.last_verified_at,
			updated_at = excluded.updated_at`,
		vendorID, slug, price.InexactFloat64(), inStock, at, at,
	)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.conn.QueryRowContext(ctx,
		"SELECT id FROM peptide_prices WHERE vendor_id = ? AND peptide_slug = ?", vendorID, slug,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// AppendPriceHistory adiciona uma linha ao histórico de preços
func (db *DB) AppendPriceHistory(ctx context.Context, peptidePriceID int64, price decimal.Decimal) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO price_history (peptide_price_id, price) VALUES (?, ?)",
		peptidePriceID, price.InexactFloat64(),
	)
	return err
}

// InsertScrapeLog grava o resumo de um fornecedor em uma execução
func (db *DB) InsertScrapeLog(ctx context.Context, l models.ScrapeLog) error {
	var errMsg sql.NullString
	if l.ErrorMessage != "" {
		errMsg = sql.NullString{String: l.ErrorMessage, Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO scrape_logs (run_id, vendor_id, status, products_found, products_updated, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.RunID, l.VendorID, string(l.Status), l.ProductsFound, l.ProductsUpdated, errMsg, l.DurationMS,
	)
	return err
}

// PricesForPeptide retorna os preços atuais de um peptídeo, do menor para o maior
func (db *DB) PricesForPeptide(ctx context.Context, slug string) ([]models.PeptidePrice, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.id, p.vendor_id, v.name, p.peptide_slug, p.price, p.in_stock, p.last_verified_at, p.updated_at
		FROM peptide_prices p
		JOIN vendors v ON v.id = p.vendor_id
		WHERE p.peptide_slug = ?
		ORDER BY p.price ASC, v.name ASC`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []models.PeptidePrice
	for rows.Next() {
		var p models.PeptidePrice
		var verified, updated sql.NullTime
		var price float64
		if err := rows.Scan(&p.ID, &p.VendorID, &p.VendorName, &p.PeptideSlug, &price, &p.InStock, &verified, &updated); err != nil {
			return nil, err
		}
		p.Price = decimal.NewFromFloat(price).Round(2)
		if verified.Valid {
			p.LastVerifiedAt = verified.Time
		}
		if updated.Valid {
			p.UpdatedAt = updated.Time
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// PriceHistory retorna o histórico de uma linha de preço, do mais antigo ao mais recente
func (db *DB) PriceHistory(ctx context.Context, peptidePriceID int64) ([]models.PriceHistoryEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, peptide_price_id, price, created_at FROM price_history WHERE peptide_price_id = ? ORDER BY id",
		peptidePriceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		var price float64
		if err := rows.Scan(&e.ID, &e.PeptidePriceID, &price, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Price = decimal.NewFromFloat(price).Round(2)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentScrapeLogs retorna os últimos registros de execução
func (db *DB) RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.id, l.run_id, l.vendor_id, v.name, l.status, l.products_found, l.products_updated,
			l.error_message, l.duration_ms, l.created_at
		FROM scrape_logs l
		JOIN vendors v ON v.id = l.vendor_id
		ORDER BY l.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &l.RunID, &l.VendorID, &l.VendorName, &status, &l.ProductsFound, &l.ProductsUpdated,
			&errMsg, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Status = models.ScrapeStatus(status)
		l.ErrorMessage = errMsg.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
