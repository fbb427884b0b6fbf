package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/monitor"
)

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &monitor.RunSummary{RunID: "abc", Results: []models.VendorResult{
		{Vendor: "Acme", Found: 2, Updated: 2},
		{Vendor: "Beta", Found: 1, Updated: 1, Errors: []string{"page 2: HTTP 503"}},
	}})

	out := buf.String()
	for _, want := range []string{"run abc", "Acme", "success", "partial", "page 2: HTTP 503"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPrices(t *testing.T) {
	p, _ := catalog.BySlug("bpc-157")

	var buf bytes.Buffer
	printPrices(&buf, p, nil)
	if !strings.Contains(buf.String(), "Nenhum preço registrado para BPC-157") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	printPrices(&buf, p, []models.PeptidePrice{{
		VendorName:     "Acme",
		Price:          decimal.RequireFromString("48"),
		InStock:        false,
		LastVerifiedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}})
	if out := buf.String(); !strings.Contains(out, "$48.00") || !strings.Contains(out, "out of stock") {
		t.Errorf("output = %q", out)
	}
}

func TestPrintLogs(t *testing.T) {
	var buf bytes.Buffer
	printLogs(&buf, []models.ScrapeLog{{VendorName: "Acme", Status: models.StatusFailed, DurationMS: 1200, ErrorMessage: "page 1: HTTP 403"}})
	if out := buf.String(); !strings.Contains(out, "failed") || !strings.Contains(out, "1200ms") {
		t.Errorf("output = %q", out)
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "run", "seed", "prices", "logs"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}
