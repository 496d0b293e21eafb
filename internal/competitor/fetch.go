package competitor

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rankrent-cli/internal/resilience"
)

// FetchOptions configures the page fetcher.
type FetchOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// MaxBytes caps how much of a page body is read.
	MaxBytes int64
	// RequestsPerSecond is the per-host request rate.
	RequestsPerSecond float64
	Sleeper           resilience.Sleeper
}

// Fetcher downloads HTML pages with a per-host rate limit and retries on
// 429 and 5xx responses.
type Fetcher struct {
	client *http.Client
	opts   FetchOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher, filling unset options with defaults.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 2 << 20
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; rankrent-cli/1.0)"
	}
	if opts.Sleeper == nil {
		opts.Sleeper = resilience.RealSleeper
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.RequestsPerSecond), 1)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch returns the body and content type of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, "", eris.Errorf("competitor: invalid url %q", rawURL)
	}

	var lastErr error
	for attempt := range f.opts.MaxRetries + 1 {
		if attempt > 0 {
			if err := f.opts.Sleeper.Sleep(ctx, backoff(attempt-1)); err != nil {
				return nil, "", eris.Wrap(err, "competitor: backoff")
			}
		}
		if err := f.limiterFor(u.Host).Wait(ctx); err != nil {
			return nil, "", eris.Wrap(err, "competitor: rate limiter wait")
		}

		body, contentType, status, err := f.do(ctx, u.String())
		if err != nil {
			lastErr = err
			zap.L().Debug("competitor: fetch failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = resilience.NewTransientError(eris.Errorf("competitor: http %d from %s", status, rawURL), status)
			continue
		}
		if status != http.StatusOK {
			return nil, "", eris.Errorf("competitor: unexpected status %d from %s", status, rawURL)
		}
		return body, contentType, nil
	}
	return nil, "", eris.Wrap(lastErr, "competitor: all retries exhausted")
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", 0, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes))
	if err != nil {
		return nil, "", resp.StatusCode, eris.Wrap(err, "read body")
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// backoff doubles from one second, capped at 30 seconds.
func backoff(attempt int) time.Duration {
	d := time.Duration(float64(time.Second) * math.Pow(2, float64(attempt)))
	return min(d, 30*time.Second)
}
