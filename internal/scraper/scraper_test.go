package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"peptide-scraper/internal/fetch"
	"peptide-scraper/internal/models"
)

type fakeFetcher struct {
	pages     map[string]*fetch.Page
	errs      map[string]error
	requested []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	f.requested = append(f.requested, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &fetch.Page{URL: url, StatusCode: 404}, nil
}

func htmlPage(url string, body string) *fetch.Page {
	return &fetch.Page{URL: url, StatusCode: 200, Body: []byte(body)}
}

func productHTML(name, price string) string {
	return fmt.Sprintf(`<div class="product"><span class="title">%s</span><span class="price">%s</span></div>`, name, price)
}

const nextLink = `<a rel="next" href="#">Next</a>`

func newTestScraper(f PageFetcher) (*Scraper, *[]time.Duration) {
	var waits []time.Duration
	s := New(f, Options{Sleep: func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}})
	return s, &waits
}

func testVendor() models.Vendor {
	return models.Vendor{ID: 1, Slug: "acme", Name: "Acme Peptides", BaseURL: "https://acme.example.com", ScrapeConfig: testConfig}
}

func TestScrapeVendor_PaginatesAndDedups(t *testing.T) {
	base := "https://acme.example.com/peptides"
	f := &fakeFetcher{pages: map[string]*fetch.Page{
		base:                     htmlPage(base, productHTML("Semaglutide 5mg", "$249.00")+productHTML("BPC-157", "$48.00")+nextLink),
		base + "?product-page=2": htmlPage(base, productHTML("Semaglutide", "$239.50")+nextLink),
		base + "?product-page=3": htmlPage(base, "<p>No products found</p>"+nextLink),
	}}
	s, waits := newTestScraper(f)

	res := s.ScrapeVendor(context.Background(), testVendor())
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(f.requested) != 3 {
		t.Errorf("requested %v, want 3 pages", f.requested)
	}
	if len(res.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(res.Products))
	}
	if got := res.Products[0].Price.StringFixed(2); res.Products[0].Name != "Semaglutide" || got != "239.50" {
		t.Errorf("Semaglutide = %s %s, want 239.50", res.Products[0].Name, got)
	}
	if len(*waits) != 2 || (*waits)[0] != 1500*time.Millisecond {
		t.Errorf("waits = %v, want two 1.5s pauses", *waits)
	}
}

func TestScrapeVendor_StopsWhenPageTwoIsEmpty(t *testing.T) {
	base := "https://acme.example.com/peptides"
	f := &fakeFetcher{pages: map[string]*fetch.Page{
		base:                     htmlPage(base, productHTML("BPC-157", "$48.00")+nextLink),
		base + "?product-page=2": htmlPage(base, `<div class="grid"></div>`+nextLink),
	}}
	s, _ := newTestScraper(f)

	res := s.ScrapeVendor(context.Background(), testVendor())
	if len(res.Errors) != 0 {
		t.Errorf("empty page should not be an error: %v", res.Errors)
	}
	if len(f.requested) != 2 || len(res.Products) != 1 {
		t.Errorf("requested %d pages, %d products; want 2 pages and 1 product", len(f.requested), len(res.Products))
	}
}

func TestScrapeVendor_PageCap(t *testing.T) {
	base := "https://acme.example.com/peptides"
	pages := map[string]*fetch.Page{}
	for i := 1; i <= 7; i++ {
		pages[PageURL(base, i)] = htmlPage(base, productHTML("BPC-157", "$48.00")+nextLink)
	}
	f := &fakeFetcher{pages: pages}
	s, _ := newTestScraper(f)

	s.ScrapeVendor(context.Background(), testVendor())
	if len(f.requested) != 5 {
		t.Errorf("requested %d pages, want cap of 5", len(f.requested))
	}
}

func TestScrapeVendor_FirstPageFailureIsFatal(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*fetch.Page{
		"https://acme.example.com/peptides": {StatusCode: 503},
	}}
	s, _ := newTestScraper(f)

	res := s.ScrapeVendor(context.Background(), testVendor())
	if len(res.Products) != 0 || len(res.Errors) != 1 {
		t.Fatalf("res = %+v, want one error and no products", res)
	}
	if res.Errors[0] != "page 1: HTTP 503" {
		t.Errorf("error = %q", res.Errors[0])
	}
	if models.DeriveStatus(len(res.Products), res.Errors) != models.StatusFailed {
		t.Errorf("expected failed status")
	}
}

func TestScrapeVendor_LaterPageFailureKeepsProducts(t *testing.T) {
	base := "https://acme.example.com/peptides"
	f := &fakeFetcher{
		pages: map[string]*fetch.Page{
			base: htmlPage(base, productHTML("BPC-157", "$48")+productHTML("TB-500", "$52")+productHTML("Selank", "$30")+nextLink),
		},
		errs: map[string]error{base + "?product-page=2": errors.New("connection reset")},
	}
	s, _ := newTestScraper(f)

	res := s.ScrapeVendor(context.Background(), testVendor())
	if len(res.Products) != 3 || len(res.Errors) != 1 {
		t.Fatalf("res = %+v, want 3 products and 1 error", res)
	}
	if !strings.HasPrefix(res.Errors[0], "page 2:") {
		t.Errorf("error = %q", res.Errors[0])
	}
	if models.DeriveStatus(len(res.Products), res.Errors) != models.StatusPartial {
		t.Errorf("expected partial status")
	}
}

func TestScrapeVendor_InvalidConfigSkipsFetch(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestScraper(f)
	v := testVendor()
	v.ScrapeConfig.PriceSelector = ""

	res := s.ScrapeVendor(context.Background(), v)
	if len(f.requested) != 0 {
		t.Errorf("fetched %v with invalid config", f.requested)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "price_selector") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestScrapeVendor_UnparsableSelectorIsFatal(t *testing.T) {
	base := "https://acme.example.com/peptides"
	f := &fakeFetcher{pages: map[string]*fetch.Page{
		base: htmlPage(base, productHTML("BPC-157", "$48.00")),
	}}
	s, _ := newTestScraper(f)
	v := testVendor()
	v.ScrapeConfig.ProductSelector = "div["

	res := s.ScrapeVendor(context.Background(), v)
	if len(f.requested) != 0 {
		t.Errorf("fetched %v with unparsable selector", f.requested)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "product_selector") {
		t.Errorf("errors = %v", res.Errors)
	}
	if got := models.DeriveStatus(len(res.Products), res.Errors); got != models.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestScrapeVendor_MalformedStoredConfig(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestScraper(f)
	v := testVendor()
	v.ConfigErr = errors.New("unexpected end of JSON input")

	res := s.ScrapeVendor(context.Background(), v)
	if len(f.requested) != 0 {
		t.Errorf("fetched %v with malformed config", f.requested)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "malformed scrape_config") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestScrapeVendor_ListingURLWithQuery(t *testing.T) {
	listing := "https://acme.example.com/shop?category=peptides"
	f := &fakeFetcher{pages: map[string]*fetch.Page{
		listing: htmlPage(listing, productHTML("BPC-157", "$48")+nextLink),
	}}
	s, _ := newTestScraper(f)
	v := testVendor()
	v.ScrapeConfig.ListingURL = listing

	s.ScrapeVendor(context.Background(), v)
	want := []string{listing, listing + "&product-page=2"}
	if len(f.requested) != 2 || f.requested[0] != want[0] || f.requested[1] != want[1] {
		t.Errorf("requested %v, want %v", f.requested, want)
	}
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, string) (*fetch.Page, error) {
	panic("boom")
}

func TestScrapeVendor_RecoversPanics(t *testing.T) {
	s, _ := newTestScraper(panicFetcher{})
	res := s.ScrapeVendor(context.Background(), testVendor())
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "boom") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		first string
		page  int
		want  string
	}{
		{"https://a.example.com/peptides", 1, "https://a.example.com/peptides"},
		{"https://a.example.com/peptides", 2, "https://a.example.com/peptides?product-page=2"},
		{"https://a.example.com/shop?cat=1", 3, "https://a.example.com/shop?cat=1&product-page=3"},
	}
	for _, tt := range tests {
		if got := PageURL(tt.first, tt.page); got != tt.want {
			t.Errorf("PageURL(%q, %d) = %q, want %q", tt.first, tt.page, got, tt.want)
		}
	}
}
