package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
)

const (
	imageProxyTimeout = 5 * time.Second

	imageUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
)

// handleImageProxy is a stateless byte pass-through for feed thumbnails and
// favicons, with a hard deadline so a stalling image host cannot pin a
// handler goroutine.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		s.writeError(w, r, feederr.New(feederr.InvalidInput, "url must be an absolute http(s) URL"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), imageProxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		s.writeError(w, r, feederr.Wrap(feederr.InvalidInput, "build upstream request", err))
		return
	}

	req.Header.Set("User-Agent", imageUserAgent)

	resp, err := s.imageClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			s.writeError(w, r, feederr.Wrap(feederr.Timeout, "image fetch timed out", err))
			return
		}

		s.writeError(w, r, feederr.Wrap(feederr.FetchFailed, "image fetch failed", err))
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.log.ErrorContext(r.Context(), "Failed to close response body",
				"error", closeErr,
				"url", rawURL,
				"operation", "handleImageProxy")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.writeError(w, r, feederr.Newf(feederr.FetchFailed, "unexpected status %d", resp.StatusCode))
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err = io.Copy(w, resp.Body); err != nil {
		s.log.DebugContext(r.Context(), "Image copy interrupted",
			"error", err,
			"url", rawURL)
	}
}
