package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/eventlog"
	"peptide-scraper/internal/fetch"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/scraper"
)

// ErrNoVendors é retornado quando nenhum fornecedor ativo corresponde à execução
var ErrNoVendors = errors.New("no active vendors found")

// VendorLoader carrega os fornecedores ativos
type VendorLoader interface {
	Active(ctx context.Context, slug string) ([]models.Vendor, error)
}

// Store é a parte do banco usada pela execução
type Store interface {
	TouchVendor(ctx context.Context, vendorID int64, at time.Time) error
	UpsertPrice(ctx context.Context, vendorID int64, slug string, price decimal.Decimal, inStock bool, at time.Time) (int64, error)
	AppendPriceHistory(ctx context.Context, peptidePriceID int64, price decimal.Decimal) error
	InsertScrapeLog(ctx context.Context, l models.ScrapeLog) error
}

// VendorScraper percorre a vitrine de um fornecedor
type VendorScraper interface {
	ScrapeVendor(ctx context.Context, vendor models.Vendor) scraper.Result
}

// Notifier recebe o resumo de cada execução
type Notifier interface {
	NotifyRun(ctx context.Context, summary *RunSummary) error
}

// RunSummary é o resultado de uma execução
type RunSummary struct {
	RunID     string                `json:"run_id"`
	Results   []models.VendorResult `json:"results"`
	Logs      []models.ScrapeLog    `json:"-"`
	StartedAt time.Time             `json:"started_at"`
}

// Options configura o Monitor
type Options struct {
	VendorDelay time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Logger      *zap.Logger
	Events      *eventlog.Buffer
	Notifier    Notifier
	Now         func() time.Time
	// BaseContext é o contexto das execuções; o contexto de quem chama Run
	// não interrompe a execução. Padrão: context.Background().
	BaseContext context.Context
}

// Monitor orquestra as execuções de scraping
type Monitor struct {
	vendors  VendorLoader
	store    Store
	scraper  VendorScraper
	logger   *zap.Logger
	events   *eventlog.Buffer
	notifier Notifier

	vendorDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	baseCtx     context.Context

	runs singleflight.Group
}

// New cria uma nova instância do monitor
func New(vendors VendorLoader, store Store, s VendorScraper, opts Options) *Monitor {
	m := &Monitor{
		vendors:     vendors,
		store:       store,
		scraper:     s,
		logger:      opts.Logger,
		events:      opts.Events,
		notifier:    opts.Notifier,
		vendorDelay: opts.VendorDelay,
		sleep:       opts.Sleep,
		now:         opts.Now,
		baseCtx:     opts.BaseContext,
	}
	if m.baseCtx == nil {
		m.baseCtx = context.Background()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.events == nil {
		m.events = eventlog.NewBuffer(200)
	}
	if m.vendorDelay <= 0 {
		m.vendorDelay = 2 * time.Second
	}
	if m.sleep == nil {
		m.sleep = fetch.Sleep
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Events retorna o buffer de eventos recentes
func (m *Monitor) Events() *eventlog.Buffer {
	return m.events
}

// Run executa o scraping de todos os fornecedores ativos, ou apenas de vendorSlug.
// Execuções simultâneas com o mesmo escopo compartilham o mesmo resultado.
// A execução roda no contexto base do Monitor: se ctx for cancelado, Run
// retorna ctx.Err() mas os fornecedores restantes continuam sendo processados.
func (m *Monitor) Run(ctx context.Context, vendorSlug string) (*RunSummary, error) {
	ch := m.runs.DoChan("scope:"+vendorSlug, func() (any, error) {
		return m.run(m.baseCtx, vendorSlug)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.logger.Info("execução já em andamento, reutilizando resultado", zap.String("vendor_slug", vendorSlug))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RunSummary), nil
	case <-ctx.Done():
		m.logger.Warn("chamador desistiu, execução continua em background",
			zap.String("vendor_slug", vendorSlug), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (m *Monitor) run(ctx context.Context, vendorSlug string) (*RunSummary, error) {
	summary := &RunSummary{RunID: uuid.NewString(), StartedAt: m.now().UTC()}
	log := m.logger.With(zap.String("run_id", summary.RunID))

	vendors, err := m.vendors.Active(ctx, vendorSlug)
	if err == nil && len(vendors) == 0 {
		err = ErrNoVendors
		if vendorSlug != "" {
			err = fmt.Errorf("%w: %s", ErrNoVendors, vendorSlug)
		}
	}
	if err != nil {
		log.Error("falha ao carregar fornecedores", zap.Error(err))
		m.events.Add(eventlog.Event{RunID: summary.RunID, Level: eventlog.LevelError, Message: err.Error()})
		return nil, err
	}

	log.Info("execução iniciada", zap.Int("vendors", len(vendors)))

	for i, vendor := range vendors {
		if i > 0 {
			// Pausa entre fornecedores para não sobrecarregar
			if err := m.sleep(ctx, m.vendorDelay); err != nil {
				log.Warn("execução interrompida", zap.Error(err))
				break
			}
		}

		result, entry := m.processVendor(ctx, summary.RunID, vendor)
		summary.Results = append(summary.Results, result)
		summary.Logs = append(summary.Logs, entry)
	}

	// Os logs são gravados mesmo se o contexto da execução foi cancelado
	writeCtx := context.WithoutCancel(ctx)
	for _, entry := range summary.Logs {
		if err := m.store.InsertScrapeLog(writeCtx, entry); err != nil {
			log.Error("erro ao gravar scrape_log", zap.Int64("vendor_id", entry.VendorID), zap.Error(err))
		}
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyRun(writeCtx, summary); err != nil {
			log.Warn("erro ao enviar notificação", zap.Error(err))
		}
	}

	log.Info("execução concluída", zap.Int("vendors", len(summary.Results)))
	return summary, nil
}

func (m *Monitor) processVendor(ctx context.Context, runID string, vendor models.Vendor) (models.VendorResult, models.ScrapeLog) {
	start := m.now()
	log := m.logger.With(zap.String("run_id", runID), zap.String("vendor", vendor.Slug))

	var products []models.ScrapedProduct
	var errs []string
	updated := 0

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic ao processar fornecedor", zap.Any("panic", r))
				errs = append(errs, fmt.Sprintf("unexpected error: %v", r))
			}
		}()

		res := m.scraper.ScrapeVendor(ctx, vendor)
		products = res.Products
		errs = append(errs, res.Errors...)

		n, err := m.UpdatePrices(ctx, vendor.ID, products)
		updated = n
		if err != nil {
			errs = append(errs, err.Error())
		}
	}()

	// Marca a tentativa mesmo quando tudo falhou
	if err := m.store.TouchVendor(context.WithoutCancel(ctx), vendor.ID, m.now()); err != nil {
		log.Error("erro ao atualizar last_scraped_at", zap.Error(err))
	}

	duration := m.now().Sub(start)
	status := models.DeriveStatus(len(products), errs)
	entry := models.ScrapeLog{
		RunID:           runID,
		VendorID:        vendor.ID,
		VendorName:      vendor.Name,
		Status:          status,
		ProductsFound:   len(products),
		ProductsUpdated: updated,
		ErrorMessage:    models.JoinErrors(errs),
		DurationMS:      duration.Milliseconds(),
	}

	level := eventlog.LevelInfo
	switch status {
	case models.StatusPartial:
		level = eventlog.LevelWarn
	case models.StatusFailed:
		level = eventlog.LevelError
	}
	m.events.Add(eventlog.Event{
		RunID:      runID,
		Vendor:     vendor.Name,
		Level:      level,
		Status:     string(status),
		Found:      len(products),
		Updated:    updated,
		Message:    entry.ErrorMessage,
		DurationMS: entry.DurationMS,
	})

	log.Info("fornecedor processado",
		zap.String("status", string(status)),
		zap.Int("found", len(products)),
		zap.Int("updated", updated),
		zap.Strings("errors", errs),
		zap.Duration("duration", duration))

	if errs == nil {
		errs = []string{}
	}
	return models.VendorResult{Vendor: vendor.Name, Found: len(products), Updated: updated, Errors: errs}, entry
}

// UpdatePrices grava o preço atual de cada produto e adiciona uma linha ao
// histórico por produto gravado. Retorna quantos preços foram atualizados.
func (m *Monitor) UpdatePrices(ctx context.Context, vendorID int64, products []models.ScrapedProduct) (int, error) {
	updated := 0
	var failures []string
	for _, p := range products {
		slug, ok := catalog.SlugFor(p.Name)
		if !ok {
			m.logger.Warn("produto sem slug no catálogo", zap.String("name", p.Name))
			continue
		}

		now := m.now()
		id, err := m.store.UpsertPrice(ctx, vendorID, slug, p.Price, p.InStock, now)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", slug, err))
			continue
		}
		updated++

		if err := m.store.AppendPriceHistory(ctx, id, p.Price); err != nil {
			failures = append(failures, fmt.Sprintf("%s history: %v", slug, err))
		}
	}

	if len(failures) > 0 {
		return updated, fmt.Errorf("price update failed for %s", strings.Join(failures, ", "))
	}
	return updated, nil
}
