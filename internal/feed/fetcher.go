package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
	"github.com/Sselimkoc/feedTune-sub004/internal/ratelimiter"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	// DefaultFetchTimeout bounds every feed fetch; upstream feed servers are
	// untrusted and can stall indefinitely.
	DefaultFetchTimeout = 10 * time.Second

	maxBodyBytes = 10 << 20
)

// Fetcher retrieves raw feed content over HTTP. It holds no caches and no
// global state; the HTTP client and limiter are injected.
type Fetcher struct {
	client  *http.Client
	limiter *ratelimiter.Limiter
	log     *slog.Logger
}

func NewFetcher(client *http.Client, limiter *ratelimiter.Limiter, log *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	return &Fetcher{
		client:  client,
		limiter: limiter,
		log:     log,
	}
}

// Fetch issues a single GET for rawURL and returns the body bytes plus the
// declared content type. No retry is performed; a non-2xx response is
// surfaced as a fetch error immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, "", feederr.Newf(feederr.InvalidInput, "URL %q is not a well-formed absolute URI", rawURL)
	}

	if f.limiter != nil {
		if err = f.limiter.Wait(ctx, u.Host); err != nil {
			return nil, "", feederr.Wrap(feederr.Timeout, "rate limit wait cancelled", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, "", feederr.Wrap(feederr.Timeout, "fetch timed out", err)
		}

		return nil, "", feederr.Wrap(feederr.FetchFailed, "fetch failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", rawURL,
				"operation", "Fetch")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", feederr.Newf(feederr.FetchFailed, "unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, "", feederr.Wrap(feederr.Timeout, "fetch timed out", err)
		}

		return nil, "", feederr.Wrap(feederr.FetchFailed, "read response body", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }

	return errors.As(err, &netErr) && netErr.Timeout()
}
