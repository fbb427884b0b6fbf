package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeptidePrice é o preço atual de um peptídeo em um fornecedor.
// Único por (VendorID, PeptideSlug).
type PeptidePrice struct {
	ID             int64           `json:"id"`
	VendorID       int64           `json:"vendor_id"`
	VendorName     string          `json:"vendor,omitempty"`
	PeptideSlug    string          `json:"peptide_slug"`
	Price          decimal.Decimal `json:"price"`
	InStock        bool            `json:"in_stock"`
	LastVerifiedAt time.Time       `json:"last_verified_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PriceHistoryEntry é uma linha imutável do histórico de preços
type PriceHistoryEntry struct {
	ID             int64           `json:"id"`
	PeptidePriceID int64           `json:"peptide_price_id"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"created_at"`
}
