package models

import (
	"strings"
	"time"
)

// ScrapeStatus é o resultado de um fornecedor em uma execução
type ScrapeStatus string

const (
	StatusSuccess ScrapeStatus = "success"
	StatusPartial ScrapeStatus = "partial"
	StatusFailed  ScrapeStatus = "failed"
)

// DeriveStatus classifica a execução de um fornecedor: sem erros é success,
// erros com pelo menos um produto é partial, erros sem produtos é failed.
func DeriveStatus(found int, errs []string) ScrapeStatus {
	switch {
	case len(errs) == 0:
		return StatusSuccess
	case found > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// ScrapeLog é o registro de auditoria de um fornecedor em uma execução
type ScrapeLog struct {
	ID              int64        `json:"id"`
	RunID           string       `json:"run_id"`
	VendorID        int64        `json:"vendor_id"`
	VendorName      string       `json:"vendor,omitempty"`
	Status          ScrapeStatus `json:"status"`
	ProductsFound   int          `json:"products_found"`
	ProductsUpdated int          `json:"products_updated"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	DurationMS      int64        `json:"duration_ms"`
	CreatedAt       time.Time    `json:"created_at"`
}

// JoinErrors concatena as mensagens de erro para a coluna error_message
func JoinErrors(errs []string) string {
	return strings.Join(errs, "; ")
}

// VendorResult é o resumo de um fornecedor devolvido ao chamador
type VendorResult struct {
	Vendor  string   `json:"vendor"`
	Found   int      `json:"found"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}
