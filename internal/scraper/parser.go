package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/models"
)

var outOfStockMarkers = []string{
	".out-of-stock",
	".outofstock",
	".sold-out",
	".soldout",
	".unavailable",
	"[class*='out-of-stock']",
	"[class*='sold-out']",
	"[data-availability='out-of-stock']",
}

var nextPageSelectors = []string{
	"a[rel='next']",
	"link[rel='next']",
	"a.next",
	".next a",
	".pagination .next",
	"a.page-numbers.next",
	"a[aria-label*='Next']",
	"a[aria-label*='next']",
}

// ParseResult é o resultado da leitura de uma página de listagem
type ParseResult struct {
	Products    []models.ScrapedProduct
	NodeCount   int
	HasNextPage bool
}

// ParsePage extrai os produtos reconhecidos de uma página de listagem.
// Configuração inválida é erro; nós de produto inválidos são ignorados.
func ParsePage(body []byte, pageURL string, cfg models.ScrapeConfig, page int) (*ParseResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, _ := url.Parse(pageURL)
	result := &ParseResult{}

	nodes := doc.Find(cfg.ProductSelector)
	result.NodeCount = nodes.Length()
	nodes.Each(func(i int, s *goquery.Selection) {
		p, ok := parseProduct(s, cfg, base)
		if !ok {
			return
		}
		result.Products = models.MergeProduct(result.Products, p)
	})

	result.HasNextPage = hasNextPage(doc, cfg, page)
	return result, nil
}

func parseProduct(s *goquery.Selection, cfg models.ScrapeConfig, base *url.URL) (models.ScrapedProduct, bool) {
	anchor := s.Find("a").First()
	if s.Is("a") {
		anchor = s
	}

	name := cleanText(s.Find(cfg.NameSelector).First().Text())
	if name == "" {
		name = cleanText(anchor.AttrOr("title", ""))
	}
	if name == "" {
		name = cleanText(anchor.Text())
	}
	if name == "" {
		return models.ScrapedProduct{}, false
	}

	peptide, ok := catalog.FindMatchingPeptide(name)
	if !ok {
		return models.ScrapedProduct{}, false
	}

	price, ok := ExtractPrice(s.Find(cfg.PriceSelector).First().Text())
	if !ok || !price.IsPositive() {
		return models.ScrapedProduct{}, false
	}

	return models.ScrapedProduct{
		Name:      peptide.Name,
		Price:     price,
		InStock:   inStock(s, cfg),
		SourceURL: resolveHref(base, anchor.AttrOr("href", "")),
	}, true
}

func inStock(s *goquery.Selection, cfg models.ScrapeConfig) bool {
	markers := outOfStockMarkers
	if cfg.OutOfStockSelector != "" {
		markers = append([]string{cfg.OutOfStockSelector}, markers...)
	}
	for _, sel := range markers {
		if s.Find(sel).Length() > 0 || s.Is(sel) {
			return false
		}
	}

	text := strings.ToLower(s.Text())
	return !strings.Contains(text, "out of stock") && !strings.Contains(text, "sold out")
}

// hasNextPage procura um link de próxima página ou alguma indicação do número page+1
func hasNextPage(doc *goquery.Document, cfg models.ScrapeConfig, page int) bool {
	selectors := nextPageSelectors
	if cfg.NextPageSelector != "" {
		selectors = append([]string{cfg.NextPageSelector}, selectors...)
	}
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}

	next := strconv.Itoa(page + 1)
	found := false
	doc.Find("a").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if strings.Contains(a.AttrOr("href", ""), pageParam+"="+next) {
			found = true
			return false
		}
		if cleanText(a.Text()) == next && a.Closest(".pagination, .page-numbers, nav, [class*='pagination']").Length() > 0 {
			found = true
			return false
		}
		return true
	})
	return found
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
