// Package api expõe a execução de scraping e as consultas por HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/eventlog"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/monitor"
)

const maxScrapeBodySize = 1 << 20 // 1MB

// Runner dispara uma execução
type Runner interface {
	Run(ctx context.Context, vendorSlug string) (*monitor.RunSummary, error)
}

// Reader consulta preços e logs gravados
type Reader interface {
	PricesForPeptide(ctx context.Context, slug string) ([]models.PeptidePrice, error)
	RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error)
}

type Deps struct {
	Runner Runner
	Store  Reader
	Events *eventlog.Buffer
	Logger *zap.Logger
}

// ScrapeRequest é o corpo opcional de POST /scrape
type ScrapeRequest struct {
	VendorSlug string `json:"vendor_slug"`
}

type scrapeResponse struct {
	Success bool                  `json:"success"`
	RunID   string                `json:"run_id"`
	Results []models.VendorResult `json:"results"`
}

func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(cors)

	r.Post("/scrape", handleScrape(deps))
	r.Options("/scrape", handlePreflight)
	r.Get("/health", handleHealth)
	r.Get("/prices", handlePrices(deps))
	r.Get("/logs", handleLogs(deps))
	r.Get("/events", handleEvents(deps))

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleScrape(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := decodeScrapeRequest(r)

		summary, err := deps.Runner.Run(r.Context(), req.VendorSlug)
		if err != nil {
			deps.Logger.Error("erro na execução", zap.String("vendor_slug", req.VendorSlug), zap.Error(err))
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}

		results := summary.Results
		if results == nil {
			results = []models.VendorResult{}
		}
		writeJSON(w, http.StatusOK, scrapeResponse{Success: true, RunID: summary.RunID, Results: results})
	}
}

// decodeScrapeRequest lê o corpo opcional; corpo vazio ou inválido vale como "todos os fornecedores"
func decodeScrapeRequest(r *http.Request) ScrapeRequest {
	var req ScrapeRequest
	if r.Body == nil {
		return req
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxScrapeBodySize))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return req
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ScrapeRequest{}
	}
	req.VendorSlug = strings.TrimSpace(req.VendorSlug)
	return req
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePrices(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("peptide")))
		if slug == "" {
			httpError(w, http.StatusBadRequest, "peptide is required")
			return
		}
		if _, ok := catalog.BySlug(slug); !ok {
			httpError(w, http.StatusNotFound, "unknown peptide: %s", slug)
			return
		}

		prices, err := deps.Store.PricesForPeptide(r.Context(), slug)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load prices: %v", err)
			return
		}
		if prices == nil {
			prices = []models.PeptidePrice{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"peptide": slug, "prices": prices})
	}
}

func handleLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				httpError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		logs, err := deps.Store.RecentScrapeLogs(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load logs: %v", err)
			return
		}
		if logs == nil {
			logs = []models.ScrapeLog{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
	}
}

func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := []eventlog.Event{}
		if deps.Events != nil {
			if recent := deps.Events.Recent(0); len(recent) > 0 {
				events = recent
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
