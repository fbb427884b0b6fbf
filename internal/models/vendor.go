package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// ErrInvalidScrapeConfig indica que o fornecedor não tem os seletores obrigatórios
var ErrInvalidScrapeConfig = errors.New("invalid scrape config")

// ScrapeConfig contém os seletores CSS usados para ler a vitrine de um fornecedor
type ScrapeConfig struct {
	ProductSelector    string `json:"product_selector" yaml:"product_selector"`
	NameSelector       string `json:"name_selector" yaml:"name_selector"`
	PriceSelector      string `json:"price_selector" yaml:"price_selector"`
	ListingURL         string `json:"listing_url,omitempty" yaml:"listing_url"`
	NextPageSelector   string `json:"next_page_selector,omitempty" yaml:"next_page_selector"`
	OutOfStockSelector string `json:"out_of_stock_selector,omitempty" yaml:"out_of_stock_selector"`
}

// Validate garante que os três seletores obrigatórios estão presentes e que
// todos os seletores informados são CSS válido.
func (c ScrapeConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ProductSelector) == "" {
		missing = append(missing, "product_selector")
	}
	if strings.TrimSpace(c.NameSelector) == "" {
		missing = append(missing, "name_selector")
	}
	if strings.TrimSpace(c.PriceSelector) == "" {
		missing = append(missing, "price_selector")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidScrapeConfig, strings.Join(missing, ", "))
	}

	selectors := []struct{ field, sel string }{
		{"product_selector", c.ProductSelector},
		{"name_selector", c.NameSelector},
		{"price_selector", c.PriceSelector},
		{"next_page_selector", c.NextPageSelector},
		{"out_of_stock_selector", c.OutOfStockSelector},
	}
	for _, s := range selectors {
		if strings.TrimSpace(s.sel) == "" {
			continue
		}
		// O goquery transforma seletor inválido em um que não casa com nada
		if _, err := cascadia.Compile(s.sel); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidScrapeConfig, s.field, s.sel, err)
		}
	}
	return nil
}

// Vendor representa uma loja de peptídeos monitorada
type Vendor struct {
	ID            int64
	Slug          string
	Name          string
	BaseURL       string
	ScrapeConfig  ScrapeConfig
	Active        bool
	LastScrapedAt time.Time
	CreatedAt     time.Time

	// ConfigErr guarda a falha ao decodificar scrape_config lido do banco
	ConfigErr error
}

// ValidateConfig valida a configuração do fornecedor, incluindo falhas de decodificação
func (v Vendor) ValidateConfig() error {
	if v.ConfigErr != nil {
		return fmt.Errorf("%w: malformed scrape_config: %v", ErrInvalidScrapeConfig, v.ConfigErr)
	}
	return v.ScrapeConfig.Validate()
}

// FirstPageURL retorna a URL de listagem configurada ou {base}/peptides
func (v Vendor) FirstPageURL() string {
	if v.ScrapeConfig.ListingURL != "" {
		return v.ScrapeConfig.ListingURL
	}
	return strings.TrimRight(v.BaseURL, "/") + "/peptides"
}
