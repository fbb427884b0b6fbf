// Package fetch busca páginas das lojas com timeout, rotação de user-agent,
// retry com backoff exponencial e roteamento opcional por uma API de scraping.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const maxBodySize = 10 << 20 // 10MB

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// UserAgents retorna o pool de user-agents usado nas requisições diretas
func UserAgents() []string {
	out := make([]string, len(userAgents))
	copy(out, userAgents)
	return out
}

// Page é a resposta já lida de uma requisição
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// OK indica status 2xx
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Options configura o Fetcher
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration

	// APIKey e ServiceName ativam o roteamento pela API de scraping
	APIKey      string
	ServiceName string
	// ProxyEndpoint sobrescreve a URL da API (usado em testes)
	ProxyEndpoint string

	HTTPClient *http.Client
	Logger     *zap.Logger
	// Sleep substitui a espera entre tentativas
	Sleep func(ctx context.Context, d time.Duration) error
}

// Fetcher implementa a busca resiliente de páginas
type Fetcher struct {
	client      *http.Client
	logger      *zap.Logger
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	proxy       *proxyService
	sleep       func(ctx context.Context, d time.Duration) error
}

// New cria um Fetcher. Timeout e backoff zerados assumem 25s e 2s.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:      opts.HTTPClient,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		sleep:       opts.Sleep,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.timeout <= 0 {
		f.timeout = 25 * time.Second
	}
	if f.maxRetries < 0 {
		f.maxRetries = 0
	}
	if f.baseBackoff <= 0 {
		f.baseBackoff = 2 * time.Second
	}
	if f.sleep == nil {
		f.sleep = Sleep
	}

	if opts.APIKey != "" && opts.ServiceName != "" {
		svc, ok := lookupProxy(opts.ServiceName, opts.ProxyEndpoint)
		if ok {
			svc.apiKey = opts.APIKey
			f.proxy = svc
		} else {
			f.logger.Warn("serviço de scraping desconhecido, usando requisições diretas",
				zap.String("service", opts.ServiceName))
		}
	}
	return f
}

// UsesProxy indica se as requisições passam pela API de scraping
func (f *Fetcher) UsesProxy() bool {
	return f.proxy != nil
}

// Fetch busca rawURL com até MaxRetries novas tentativas.
// Respostas 429/5xx são repetidas enquanto houver orçamento; ao esgotar,
// a última resposta é devolvida sem erro. Erros de rede são repetidos e,
// ao esgotar, devolvidos. Timeout ou cancelamento encerram imediatamente.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	for attempt := 0; ; attempt++ {
		remaining := f.maxRetries - attempt

		page, err := f.attempt(ctx, rawURL, attempt)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
			if remaining <= 0 {
				return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
			f.logger.Warn("erro de rede, tentando novamente",
				zap.String("url", rawURL), zap.Int("retries_left", remaining), zap.Error(err))
			if err := f.sleep(ctx, f.Backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if retryable(page.StatusCode) && remaining > 0 {
			f.logger.Warn("status temporário, tentando novamente",
				zap.String("url", rawURL), zap.Int("status", page.StatusCode), zap.Int("retries_left", remaining))
			if err := f.sleep(ctx, f.Backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		return page, nil
	}
}

// Backoff retorna base * 2^attempt
func (f *Fetcher) Backoff(attempt int) time.Duration {
	return f.baseBackoff * time.Duration(1<<attempt)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, attempt int) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := rawURL
	if f.proxy != nil {
		target = f.proxy.wrap(rawURL)
	}

	f.logger.Info("buscando página",
		zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Bool("proxy", f.proxy != nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.proxy == nil {
		setBrowserHeaders(req, rawURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Page{URL: rawURL, StatusCode: resp.StatusCode, Body: body}, nil
}

func setBrowserHeaders(req *http.Request, rawURL string) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Sleep espera d ou até o contexto ser cancelado
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
