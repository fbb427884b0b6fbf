package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"peptide-scraper/internal/fetch"
	"peptide-scraper/internal/models"
)

const pageParam = "product-page"

// PageFetcher busca uma página já lida
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Options configura o Scraper
type Options struct {
	MaxPages  int
	PageDelay time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
	Logger    *zap.Logger
}

// Scraper percorre as páginas de listagem de um fornecedor
type Scraper struct {
	fetcher   PageFetcher
	logger    *zap.Logger
	maxPages  int
	pageDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// Result contém os produtos deduplicados e os erros de um fornecedor
type Result struct {
	Products []models.ScrapedProduct
	Errors   []string
	Pages    int
}

// New cria um Scraper; padrões: 5 páginas e 1,5s entre páginas
func New(fetcher PageFetcher, opts Options) *Scraper {
	s := &Scraper{
		fetcher:   fetcher,
		logger:    opts.Logger,
		maxPages:  opts.MaxPages,
		pageDelay: opts.PageDelay,
		sleep:     opts.Sleep,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxPages <= 0 {
		s.maxPages = 5
	}
	if s.pageDelay <= 0 {
		s.pageDelay = 1500 * time.Millisecond
	}
	if s.sleep == nil {
		s.sleep = fetch.Sleep
	}
	return s
}

// ScrapeVendor nunca retorna erro: falhas viram mensagens em Result.Errors.
func (s *Scraper) ScrapeVendor(ctx context.Context, vendor models.Vendor) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic ao processar fornecedor", zap.String("vendor", vendor.Slug), zap.Any("panic", r))
			res.Errors = append(res.Errors, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	if err := vendor.ValidateConfig(); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	firstURL := vendor.FirstPageURL()
	for page := 1; page <= s.maxPages; page++ {
		if page > 1 {
			if err := s.sleep(ctx, s.pageDelay); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
				break
			}
		}

		pageURL := PageURL(firstURL, page)
		p, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
			break
		}
		if !p.OK() {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: HTTP %d", page, p.StatusCode))
			break
		}
		res.Pages = page

		parsed, err := ParsePage(p.Body, pageURL, vendor.ScrapeConfig, page)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
			break
		}
		if parsed.NodeCount == 0 {
			s.logger.Debug("página sem produtos, fim da listagem", zap.String("vendor", vendor.Slug), zap.Int("page", page))
			break
		}

		for _, product := range parsed.Products {
			res.Products = models.MergeProduct(res.Products, product)
		}
		s.logger.Info("página processada",
			zap.String("vendor", vendor.Slug),
			zap.Int("page", page),
			zap.Int("nodes", parsed.NodeCount),
			zap.Int("matched", len(parsed.Products)))

		if !parsed.HasNextPage {
			break
		}
	}

	return res
}

// PageURL monta a URL da página n a partir da primeira
func PageURL(firstURL string, page int) string {
	if page <= 1 {
		return firstURL
	}
	sep := "?"
	if strings.Contains(firstURL, "?") {
		sep = "&"
	}
	return firstURL + sep + pageParam + "=" + strconv.Itoa(page)
}
