// Package sitemeta scrapes lightweight page metadata (title, description,
// icon) used to decorate feed previews.
package sitemeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	scrapeTimeout = 5 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
)

type Meta struct {
	Title       string
	Description string
	ImageURL    string
	FaviconURL  string
}

type Scraper struct {
	client *http.Client
	log    *slog.Logger
}

func NewScraper(client *http.Client, log *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: scrapeTimeout}
	}

	return &Scraper{
		client: client,
		log:    log,
	}
}

// Scrape fetches pageURL and extracts og: metadata plus the favicon link,
// resolved against the page URL. Callers treat failures as best-effort.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (Meta, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || !base.IsAbs() {
		return Meta{}, errors.New("page URL is not absolute")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return Meta{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Meta{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"pageURL", pageURL,
				"operation", "Scrape")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Meta{}, fmt.Errorf("create document from reader: %w", err)
	}

	var meta Meta

	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		meta.Title = strings.TrimSpace(content)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if content, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		meta.Description = strings.TrimSpace(content)
	}

	if content, ok := doc.Find("meta[property='og:image']").Attr("content"); ok {
		meta.ImageURL = resolveRef(base, content)
	}

	if href, ok := doc.Find("link[rel='icon'], link[rel='shortcut icon']").Attr("href"); ok {
		meta.FaviconURL = resolveRef(base, href)
	}
	if meta.FaviconURL == "" {
		meta.FaviconURL = base.Scheme + "://" + base.Host + "/favicon.ico"
	}

	return meta, nil
}

func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	return base.ResolveReference(u).String()
}
