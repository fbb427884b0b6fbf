package scraper

import (
	"errors"
	"testing"

	"peptide-scraper/internal/models"
)

var testConfig = models.ScrapeConfig{
	ProductSelector: ".product",
	NameSelector:    ".title",
	PriceSelector:   ".price",
}

const threeProductFixture = `<html><body>
<div class="product"><a href="/p/bpc-157"><span class="title">BPC-157 5mg</span></a><span class="price">$48.00</span></div>
<div class="product"><span class="title">Random Supplement</span><span class="price">$19.99</span></div>
<div class="product"><span class="title">TB-500 2mg</span><span class="price">$52.00 - $60.00</span><span class="badge">Sold Out</span></div>
</body></html>`

func TestParsePage_EndToEndFixture(t *testing.T) {
	res, err := ParsePage([]byte(threeProductFixture), "https://vendor.example.com/peptides", testConfig, 1)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if res.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", res.NodeCount)
	}
	if len(res.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2: %+v", len(res.Products), res.Products)
	}

	bpc := res.Products[0]
	if bpc.Name != "BPC-157" || bpc.Price.StringFixed(2) != "48.00" || !bpc.InStock {
		t.Errorf("BPC-157 = %+v", bpc)
	}
	if bpc.SourceURL != "https://vendor.example.com/p/bpc-157" {
		t.Errorf("SourceURL = %q", bpc.SourceURL)
	}

	tb := res.Products[1]
	if tb.Name != "TB-500" || tb.Price.StringFixed(2) != "52.00" || tb.InStock {
		t.Errorf("TB-500 = %+v", tb)
	}
	if res.HasNextPage {
		t.Error("single page fixture should not report a next page")
	}
}

func TestParsePage_NameFallbacks(t *testing.T) {
	html := `<ul>
<li class="product"><a href="/a" title="Semaglutide 5mg"><img src="x.png"></a><span class="price">$249.00</span></li>
<li class="product"><a href="/b">Tirzepatide 10mg</a><span class="price">$299.00</span></li>
<li class="product"><span class="price">$10.00</span></li>
</ul>`
	res, err := ParsePage([]byte(html), "https://vendor.example.com/shop", testConfig, 1)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if len(res.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(res.Products))
	}
	if res.Products[0].Name != "Semaglutide" || res.Products[1].Name != "Tirzepatide" {
		t.Errorf("names = %q, %q", res.Products[0].Name, res.Products[1].Name)
	}
}

func TestParsePage_DiscardsInvalidPrices(t *testing.T) {
	html := `<div class="product"><span class="title">BPC-157</span><span class="price">$0.00</span></div>
<div class="product"><span class="title">TB-500</span><span class="price">Contact us</span></div>
<div class="product"><span class="title">Semaglutide</span><span class="price">$249.00</span></div>
<div class="product"><span class="title">Semaglutide 10mg</span><span class="price">$239.50</span></div>`
	res, err := ParsePage([]byte(html), "", testConfig, 1)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if len(res.Products) != 1 {
		t.Fatalf("len(Products) = %d, want 1: %+v", len(res.Products), res.Products)
	}
	if got := res.Products[0].Price.StringFixed(2); got != "239.50" {
		t.Errorf("Semaglutide price = %s, want 239.50", got)
	}
}

func TestParsePage_StockMarkers(t *testing.T) {
	cfg := testConfig
	cfg.OutOfStockSelector = ".no-inventory"
	html := `<div class="product"><span class="title">BPC-157</span><span class="price">$40</span><span class="out-of-stock"></span></div>
<div class="product"><span class="title">TB-500</span><span class="price">$50</span><p>Currently OUT OF STOCK</p></div>
<div class="product"><span class="title">Selank</span><span class="price">$30</span><i class="no-inventory"></i></div>
<div class="product"><span class="title">Semax</span><span class="price">$35</span><button>Add to cart</button></div>`
	res, err := ParsePage([]byte(html), "", cfg, 1)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	want := map[string]bool{"BPC-157": false, "TB-500": false, "Selank": false, "Semax": true}
	if len(res.Products) != len(want) {
		t.Fatalf("len(Products) = %d, want %d", len(res.Products), len(want))
	}
	for _, p := range res.Products {
		if p.InStock != want[p.Name] {
			t.Errorf("%s InStock = %v, want %v", p.Name, p.InStock, want[p.Name])
		}
	}
}

func TestParsePage_InvalidConfig(t *testing.T) {
	_, err := ParsePage([]byte(threeProductFixture), "", models.ScrapeConfig{ProductSelector: ".product"}, 1)
	if !errors.Is(err, models.ErrInvalidScrapeConfig) {
		t.Fatalf("expected ErrInvalidScrapeConfig, got %v", err)
	}
}

func TestParsePage_NextPageDetection(t *testing.T) {
	product := `<div class="product"><span class="title">BPC-157</span><span class="price">$40</span></div>`
	tests := []struct {
		name string
		html string
		cfg  models.ScrapeConfig
		want bool
	}{
		{"rel next", product + `<a rel="next" href="/peptides?product-page=2">Next</a>`, testConfig, true},
		{"next class", product + `<nav><a class="next" href="#">›</a></nav>`, testConfig, true},
		{"page param link", product + `<a href="/peptides?product-page=2">more</a>`, testConfig, true},
		{"numbered pagination", product + `<div class="pagination"><span>1</span><a href="/x">2</a></div>`, testConfig, true},
		{"stray number outside pagination", product + `<a href="/x">2</a>`, testConfig, false},
		{"custom selector", product + `<button class="load-more">Load more</button>`,
			models.ScrapeConfig{ProductSelector: ".product", NameSelector: ".title", PriceSelector: ".price", NextPageSelector: ".load-more"}, true},
		{"no pagination", product, testConfig, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParsePage([]byte(tt.html), "https://vendor.example.com/peptides", tt.cfg, 1)
			if err != nil {
				t.Fatalf("ParsePage: %v", err)
			}
			if res.HasNextPage != tt.want {
				t.Errorf("HasNextPage = %v, want %v", res.HasNextPage, tt.want)
			}
		})
	}
}
