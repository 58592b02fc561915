// Package ratelimiter bounds outbound request rates per remote host so that
// refresh passes do not hammer a single feed server.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultPerHostInterval = 500 * time.Millisecond
	defaultBurst           = 2
)

type Limiter struct {
	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	log     *slog.Logger
}

// New builds a limiter allowing one request per interval per host, with the
// given burst. Non-positive arguments fall back to defaults.
func New(interval time.Duration, burst int, log *slog.Logger) *Limiter {
	if interval <= 0 {
		interval = defaultPerHostInterval
	}
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Limiter{
		perHost: make(map[string]*rate.Limiter),
		limit:   rate.Every(interval),
		burst:   burst,
		log:     log,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.limiterFor(host).Wait(ctx)
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.perHost[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.perHost[host] = lim

		l.log.Debug("Created per-host limiter",
			"host", host,
			"burst", l.burst)
	}

	return lim
}
