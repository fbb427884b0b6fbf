// Package vendors carrega os fornecedores ativos e o arquivo de seed em YAML.
package vendors

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"peptide-scraper/internal/models"
)

// Store é o acesso à tabela vendors
type Store interface {
	ActiveVendors(ctx context.Context, slug string) ([]models.Vendor, error)
	UpsertVendor(ctx context.Context, v models.Vendor) error
}

// Registry lê e grava fornecedores
type Registry struct {
	store  Store
	logger *zap.Logger
}

// NewRegistry cria um Registry
func NewRegistry(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger}
}

// Active retorna os fornecedores ativos (ou apenas o do slug informado).
// Configurações inválidas são registradas aqui e rejeitadas pelo scraper.
func (r *Registry) Active(ctx context.Context, slug string) ([]models.Vendor, error) {
	vendors, err := r.store.ActiveVendors(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	for _, v := range vendors {
		if err := v.ValidateConfig(); err != nil {
			r.logger.Warn("fornecedor com configuração inválida", zap.String("vendor", v.Slug), zap.Error(err))
		}
	}
	return vendors, nil
}

type seedFile struct {
	Vendors []seedVendor `yaml:"vendors"`
}

type seedVendor struct {
	Slug         string              `yaml:"slug"`
	Name         string              `yaml:"name"`
	BaseURL      string              `yaml:"base_url"`
	Active       *bool               `yaml:"active"`
	ScrapeConfig models.ScrapeConfig `yaml:"scrape_config"`
}

// ParseSeed lê e valida um arquivo de seed; qualquer entrada inválida aborta
func ParseSeed(data []byte) ([]models.Vendor, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seen := make(map[string]bool)
	vendors := make([]models.Vendor, 0, len(f.Vendors))
	for i, sv := range f.Vendors {
		v := models.Vendor{
			Slug:         strings.TrimSpace(sv.Slug),
			Name:         strings.TrimSpace(sv.Name),
			BaseURL:      strings.TrimSpace(sv.BaseURL),
			Active:       sv.Active == nil || *sv.Active,
			ScrapeConfig: sv.ScrapeConfig,
		}
		label := v.Slug
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if v.Slug == "" || v.Name == "" {
			return nil, fmt.Errorf("vendor %s: slug and name are required", label)
		}
		if seen[v.Slug] {
			return nil, fmt.Errorf("vendor %s: duplicate slug", label)
		}
		seen[v.Slug] = true
		if u, err := url.Parse(v.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("vendor %s: base_url must be an absolute URL", label)
		}
		if err := v.ScrapeConfig.Validate(); err != nil {
			return nil, fmt.Errorf("vendor %s: %w", label, err)
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

// Seed carrega o arquivo YAML em path e grava os fornecedores pelo slug
func (r *Registry) Seed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	vendors, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	for _, v := range vendors {
		if err := r.store.UpsertVendor(ctx, v); err != nil {
			return 0, fmt.Errorf("upsert vendor %s: %w", v.Slug, err)
		}
		r.logger.Info("fornecedor gravado", zap.String("vendor", v.Slug), zap.Bool("active", v.Active))
	}
	return len(vendors), nil
}
