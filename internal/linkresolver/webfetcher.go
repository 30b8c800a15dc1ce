package linkresolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrTooManyRedirects indicates a fetch followed more redirects than
// permitted.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrHTTPStatusNotOK indicates a non-200 HTTP response.
var ErrHTTPStatusNotOK = errors.New("http status not ok")

const (
	defaultFetchTimeout = 30 * time.Second
	maxRedirects        = 5
	maxBodyBytes        = 5 * 1024 * 1024

	globalBurst = 5
	domainRate  = 1
	domainBurst = 2
)

// WebFetcher downloads raw HTML, subject to a global and a per-domain
// rate limit, the same two-tier shape the teacher uses to avoid
// hammering any single origin while still making overall progress.
type WebFetcher struct {
	client         *http.Client
	globalLimiter  *rate.Limiter
	domainLimiters map[string]*rate.Limiter
	mu             sync.RWMutex
	userAgent      string
}

// NewWebFetcher creates a WebFetcher with the given global requests-
// per-second budget and per-request timeout.
func NewWebFetcher(rps float64, timeout time.Duration) *WebFetcher {
	if rps <= 0 {
		rps = 2
	}

	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}

				return nil
			},
		},
		globalLimiter:  rate.NewLimiter(rate.Limit(rps), globalBurst),
		domainLimiters: make(map[string]*rate.Limiter),
		userAgent:      "ChannelIntelBot/1.0 (+link resolver)",
	}
}

// Fetch downloads rawURL's body, capped at 5MB, after waiting on both
// rate limiters.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter wait: %w", err)
	}

	if err := f.domainLimiter(extractDomain(rawURL)).Wait(ctx); err != nil {
		return nil, fmt.Errorf("domain rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatusNotOK, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

func (f *WebFetcher) domainLimiter(domain string) *rate.Limiter {
	f.mu.RLock()
	limiter, ok := f.domainLimiters[domain]
	f.mu.RUnlock()

	if ok {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if limiter, ok := f.domainLimiters[domain]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(domainRate, domainBurst)
	f.domainLimiters[domain] = limiter

	return limiter
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}
