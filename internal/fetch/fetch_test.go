package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestFetcher(rec *sleepRecorder, opts Options) *Fetcher {
	opts.Sleep = rec.sleep
	return New(opts)
}

func TestFetch_RetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, Options{MaxRetries: 2})

	page, err := f.Fetch(context.Background(), srv.URL+"/peptides")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !page.OK() || string(page.Body) != "<html>ok</html>" {
		t.Errorf("page = %d %q", page.StatusCode, page.Body)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if !slices.Equal(rec.waits, []time.Duration{2 * time.Second}) {
		t.Errorf("waits = %v, want [2s]", rec.waits)
	}
}

func TestFetch_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, Options{MaxRetries: 2})

	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", page.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if !slices.Equal(rec.waits, []time.Duration{2 * time.Second, 4 * time.Second}) {
		t.Errorf("waits = %v, want [2s 4s]", rec.waits)
	}
}

func TestFetch_ZeroRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, Options{MaxRetries: 0})

	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", page.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(rec.waits) != 0 {
		t.Errorf("waits = %v, want none", rec.waits)
	}
}

func TestFetch_UserAgentPickedPerAttempt(t *testing.T) {
	var mu sync.Mutex
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		n := len(agents)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(&sleepRecorder{}, Options{MaxRetries: 2})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !page.OK() {
		t.Errorf("status = %d, want 200", page.StatusCode)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(agents) != 3 {
		t.Fatalf("attempts = %d, want 3", len(agents))
	}
	pool := UserAgents()
	for i, ua := range agents {
		if !slices.Contains(pool, ua) {
			t.Errorf("attempt %d User-Agent %q not in pool", i+1, ua)
		}
	}
}

func TestFetch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(&sleepRecorder{}, Options{MaxRetries: 2})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusNotFound || calls.Load() != 1 {
		t.Errorf("status = %d calls = %d, want 404 once", page.StatusCode, calls.Load())
	}
}

func TestFetch_TimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, Options{Timeout: 50 * time.Millisecond, MaxRetries: 2})

	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(rec.waits) != 0 {
		t.Errorf("expected no backoff after timeout, got %v", rec.waits)
	}
}

func TestFetch_NetworkErrorRetriedThenReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, Options{MaxRetries: 2})

	if _, err := f.Fetch(context.Background(), addr); err == nil {
		t.Fatal("expected error from closed server")
	}
	if len(rec.waits) != 2 {
		t.Errorf("waits = %v, want two backoffs", rec.waits)
	}
}

func TestFetch_DirectHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	f := newTestFetcher(&sleepRecorder{}, Options{MaxRetries: 2})
	if _, err := f.Fetch(context.Background(), srv.URL+"/shop?page=1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !slices.Contains(UserAgents(), got.Get("User-Agent")) {
		t.Errorf("User-Agent %q not in pool", got.Get("User-Agent"))
	}
	if got.Get("Referer") != srv.URL+"/" {
		t.Errorf("Referer = %q, want %q", got.Get("Referer"), srv.URL+"/")
	}
	if got.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", got.Get("Cache-Control"))
	}
	if got.Get("Accept-Language") == "" || got.Get("Accept") == "" {
		t.Errorf("missing Accept headers: %v", got)
	}
}

func TestFetch_ProxyEnvelope(t *testing.T) {
	tests := []struct {
		service  string
		keyParam string
	}{
		{"zenrows", "apikey"},
		{"scrapingant", "x-api-key"},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			var gotURL, gotKey, gotReferer string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotURL = r.URL.Query().Get("url")
				gotKey = r.URL.Query().Get(tt.keyParam)
				gotReferer = r.Header.Get("Referer")
			}))
			defer srv.Close()

			f := newTestFetcher(&sleepRecorder{}, Options{
				MaxRetries:    2,
				APIKey:        "secret",
				ServiceName:   tt.service,
				ProxyEndpoint: srv.URL,
			})
			if !f.UsesProxy() {
				t.Fatal("expected proxy to be enabled")
			}

			target := "https://vendor.example.com/peptides?product-page=2"
			page, err := f.Fetch(context.Background(), target)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if page.URL != target {
				t.Errorf("page.URL = %q, want original target", page.URL)
			}
			if gotURL != target || gotKey != "secret" {
				t.Errorf("proxy got url=%q key=%q", gotURL, gotKey)
			}
			if gotReferer != "" {
				t.Errorf("direct headers should be dropped, Referer = %q", gotReferer)
			}
		})
	}
}

func TestNew_UnknownProxyFallsBackToDirect(t *testing.T) {
	f := New(Options{APIKey: "secret", ServiceName: "brightdata"})
	if f.UsesProxy() {
		t.Error("unknown service should not enable proxy")
	}
}

func TestBackoff(t *testing.T) {
	f := New(Options{BaseBackoff: 100 * time.Millisecond})
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := f.Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}
