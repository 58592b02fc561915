package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
	"github.com/Sselimkoc/feedTune-sub004/internal/sitemeta"
	"github.com/Sselimkoc/feedTune-sub004/internal/summarizer"
	"mvdan.cc/xurls/v2"
)

const refreshAllMaxConcurrency = 8

// Service wires fetcher, parser, adapter, normalizer, and dedup gate into the
// operations the HTTP layer and the scheduler call. All collaborators are
// injected; the service owns no global state beyond the in-flight map.
type Service struct {
	db         *database.Database
	fetcher    *Fetcher
	parser     *Parser
	youtube    *YouTubeClient
	meta       *sitemeta.Scraper
	summarizer summarizer.Summarizer
	log        *slog.Logger

	mu       sync.Mutex
	inflight map[int64]*refreshCall
}

func NewService(
	db *database.Database,
	fetcher *Fetcher,
	parser *Parser,
	youtube *YouTubeClient,
	meta *sitemeta.Scraper,
	s summarizer.Summarizer,
	log *slog.Logger,
) *Service {
	return &Service{
		db:         db,
		fetcher:    fetcher,
		parser:     parser,
		youtube:    youtube,
		meta:       meta,
		summarizer: s,
		log:        log,
		inflight:   make(map[int64]*refreshCall),
	}
}

// RefreshResult reports one completed ingestion pass.
type RefreshResult struct {
	Feed     domain.Feed
	NewCount int64
	NewItems []domain.NormalizedItem
}

type refreshCall struct {
	done   chan struct{}
	result RefreshResult
	err    error
}

// Preview fetches, parses, and normalizes a source without any storage side
// effects.
func (s *Service) Preview(
	ctx context.Context,
	input string,
	feedType domain.FeedType,
) (*domain.FeedPreview, error) {
	switch feedType {
	case domain.FeedTypeRSS:
		return s.previewRSS(ctx, input)
	case domain.FeedTypeYouTube:
		return s.previewYouTube(ctx, input)
	default:
		return nil, feederr.Newf(feederr.InvalidInput, "unknown feed type %q", feedType)
	}
}

func (s *Service) previewRSS(ctx context.Context, input string) (*domain.FeedPreview, error) {
	feedURL, err := extractFeedURL(input)
	if err != nil {
		return nil, err
	}

	raw, _, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	preview := &domain.FeedPreview{
		Type:        domain.FeedTypeRSS,
		URL:         feedURL,
		Title:       strings.TrimSpace(parsed.Title),
		Description: Snippet(parsed.Description, maxDescriptionChars),
		Items:       NormalizeRSSItems(parsed, time.Now().UTC()),
	}

	if preview.Title == "" {
		s.log.WarnContext(ctx, "Empty feed title",
			"feedURL", feedURL,
			"fallbackTitle", feedURL)

		preview.Title = feedURL
	}

	if parsed.Image != nil {
		preview.ImageURL = strings.TrimSpace(parsed.Image.URL)
	}

	// Icon scrape is decoration only; failures never fail the preview.
	if preview.ImageURL == "" && s.meta != nil && parsed.Link != "" {
		if meta, metaErr := s.meta.Scrape(ctx, parsed.Link); metaErr == nil {
			preview.ImageURL = meta.FaviconURL
			if preview.ImageURL == "" {
				preview.ImageURL = meta.ImageURL
			}
		} else {
			s.log.DebugContext(ctx, "Site metadata scrape failed",
				"error", metaErr,
				"siteURL", parsed.Link)
		}
	}

	return preview, nil
}

func (s *Service) previewYouTube(ctx context.Context, input string) (*domain.FeedPreview, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, feederr.New(feederr.InvalidInput, "channel identifier is empty")
	}

	meta, items, err := s.youtube.ChannelVideos(ctx, input)
	if err != nil {
		return nil, err
	}

	return &domain.FeedPreview{
		Type:        domain.FeedTypeYouTube,
		URL:         meta.URL,
		ChannelID:   meta.ChannelID,
		Title:       meta.Title,
		Description: Snippet(meta.Description, maxDescriptionChars),
		ImageURL:    meta.Thumbnail,
		Items:       items,
	}, nil
}

// AddFeed previews the source, registers the feed, and runs the first
// ingestion pass. The pre-check against an existing active feed is a
// fast-path optimization; the unique index on (user_id, url) is the real
// guard, and its violation maps to the same Conflict.
func (s *Service) AddFeed(
	ctx context.Context,
	userID int64,
	input string,
	feedType domain.FeedType,
) (*domain.Feed, int64, error) {
	preview, err := s.Preview(ctx, input, feedType)
	if err != nil {
		return nil, 0, err
	}

	exists, err := s.db.HasActiveFeed(ctx, userID, preview.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("check existing feed: %w", err)
	}
	if exists {
		return nil, 0, feederr.Newf(feederr.Conflict, "feed %s is already subscribed", preview.URL)
	}

	feed := &domain.Feed{
		UserID:      userID,
		Type:        preview.Type,
		URL:         preview.URL,
		ChannelID:   preview.ChannelID,
		Title:       preview.Title,
		Description: preview.Description,
		ImageURL:    preview.ImageURL,
		IsActive:    true,
	}

	feedID, err := s.db.AddFeed(ctx, feed)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, 0, feederr.Newf(feederr.Conflict, "feed %s is already subscribed", preview.URL)
		}

		return nil, 0, fmt.Errorf("add feed: %w", err)
	}
	feed.ID = feedID

	fresh, _ := Partition(map[string]struct{}{}, preview.Items)

	inserted, err := s.db.InsertItems(ctx, feedID, fresh)
	if err != nil {
		return nil, 0, fmt.Errorf("insert items: %w", err)
	}

	s.log.InfoContext(ctx, "Feed is added",
		"feedID", feedID,
		"userID", userID,
		"type", string(feed.Type),
		"newItems", inserted)

	return feed, inserted, nil
}

func (s *Service) ListFeeds(ctx context.Context, userID int64) ([]domain.Feed, error) {
	feeds, err := s.db.GetUserFeeds(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user feeds: %w", err)
	}

	return feeds, nil
}

func (s *Service) RemoveFeed(ctx context.Context, userID int64, feedID int64) error {
	err := s.db.SoftDeleteFeed(ctx, feedID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return feederr.Newf(feederr.NotFound, "feed %d not found", feedID)
	}
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}

	return nil
}

// RefreshFeed runs a full ingestion pass for a feed the caller owns and
// returns the number of newly stored items.
func (s *Service) RefreshFeed(ctx context.Context, userID int64, feedID int64) (int64, error) {
	feed, err := s.db.GetFeedByID(ctx, feedID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return 0, feederr.Newf(feederr.NotFound, "feed %d not found", feedID)
	}
	if err != nil {
		return 0, fmt.Errorf("get feed: %w", err)
	}

	result, err := s.refresh(ctx, *feed)
	if err != nil {
		return 0, err
	}

	return result.NewCount, nil
}

// RefreshAll refreshes every active feed with bounded concurrency. Individual
// feed failures are joined, never abort the whole pass.
func (s *Service) RefreshAll(ctx context.Context) ([]RefreshResult, error) {
	feeds, err := s.db.GetActiveFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active feeds: %w", err)
	}

	if len(feeds) == 0 {
		return nil, nil
	}

	var writeWg sync.WaitGroup

	concurrency := min(refreshAllMaxConcurrency, len(feeds))
	semCh := make(chan struct{}, concurrency)

	// Buffered for every feed so a worker never blocks on the send while
	// holding a semaphore slot; draining starts only after spawning ends.
	resultCh := make(chan RefreshResult, len(feeds))
	errCh := make(chan error, len(feeds))

	for _, feed := range feeds {
		writeWg.Add(1)
		semCh <- struct{}{}

		go func(copiedFeed domain.Feed) {
			defer writeWg.Done()

			result, refreshErr := s.refresh(ctx, copiedFeed)
			if refreshErr != nil {
				errCh <- fmt.Errorf("refresh feed %d: %w", copiedFeed.ID, refreshErr)
			} else {
				resultCh <- result
			}

			<-semCh
		}(feed)
	}

	go func() {
		writeWg.Wait()
		close(semCh)
		close(resultCh)
		close(errCh)
	}()

	var results []RefreshResult
	for result := range resultCh {
		results = append(results, result)
	}

	var errs []error
	for refreshErr := range errCh {
		errs = append(errs, refreshErr)
	}

	return results, errors.Join(errs...)
}

// SearchChannels proxies a normalized YouTube channel search.
func (s *Service) SearchChannels(ctx context.Context, query string) ([]domain.ChannelSummary, error) {
	return s.youtube.SearchChannels(ctx, query)
}

func (s *Service) ListItems(
	ctx context.Context,
	userID int64,
	filter database.ItemFilter,
) ([]domain.ItemWithState, error) {
	items, err := s.db.GetItemsWithState(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SetItemState applies a partial interaction update, creating the row lazily
// on first toggle.
func (s *Service) SetItemState(
	ctx context.Context,
	userID int64,
	itemID int64,
	patch database.InteractionPatch,
) error {
	owns, err := s.db.OwnsItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("check item ownership: %w", err)
	}
	if !owns {
		return feederr.Newf(feederr.NotFound, "item %d not found", itemID)
	}

	if err = s.db.UpsertInteraction(ctx, userID, itemID, patch); err != nil {
		return fmt.Errorf("upsert interaction: %w", err)
	}

	return nil
}

// refresh collapses concurrent refreshes of the same feed into one
// execution; late callers wait for the in-flight pass and share its result.
func (s *Service) refresh(ctx context.Context, feed domain.Feed) (RefreshResult, error) {
	s.mu.Lock()
	if call, ok := s.inflight[feed.ID]; ok {
		s.mu.Unlock()

		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return RefreshResult{}, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.inflight[feed.ID] = call
	s.mu.Unlock()

	call.result, call.err = s.ingest(ctx, feed)

	s.mu.Lock()
	delete(s.inflight, feed.ID)
	s.mu.Unlock()

	close(call.done)

	return call.result, call.err
}

// ingest is one strictly sequential pass: fetch, parse, normalize, dedup,
// store. Any fetch/parse/upstream failure aborts the pass; no partial item
// list is stored.
func (s *Service) ingest(ctx context.Context, feed domain.Feed) (RefreshResult, error) {
	var (
		candidates []domain.NormalizedItem
		newTitle   string
	)

	switch feed.Type {
	case domain.FeedTypeYouTube:
		meta, items, err := s.youtube.ChannelVideos(ctx, feed.ChannelID)
		if err != nil {
			return RefreshResult{}, err
		}

		candidates = items
		newTitle = meta.Title

	default:
		raw, _, err := s.fetcher.Fetch(ctx, feed.URL)
		if err != nil {
			return RefreshResult{}, err
		}

		parsed, err := s.parser.Parse(raw)
		if err != nil {
			return RefreshResult{}, err
		}

		candidates = NormalizeRSSItems(parsed, time.Now().UTC())
		newTitle = strings.TrimSpace(parsed.Title)
	}

	if newTitle != "" && newTitle != feed.Title {
		if err := s.db.UpdateFeedMeta(ctx, feed.ID, newTitle, feed.Description, feed.ImageURL); err != nil {
			s.log.ErrorContext(ctx, "Failed to update feed title",
				"error", err,
				"feedID", feed.ID)
		} else {
			feed.Title = newTitle
		}
	}

	existing, err := s.db.GetFeedItemLinks(ctx, feed.ID)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("get stored links: %w", err)
	}

	// The gate runs before any inferred timestamp is persisted, so an
	// undated item re-ingested later cannot drift to a newer timestamp.
	fresh, duplicate := Partition(existing, candidates)

	inserted, err := s.db.InsertItems(ctx, feed.ID, fresh)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("insert items: %w", err)
	}

	s.log.InfoContext(ctx, "Feed is refreshed",
		"feedID", feed.ID,
		"type", string(feed.Type),
		"candidates", len(candidates),
		"duplicates", len(duplicate),
		"newItems", inserted)

	return RefreshResult{
		Feed:     feed,
		NewCount: inserted,
		NewItems: fresh,
	}, nil
}

func extractFeedURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", feederr.New(feederr.InvalidInput, "input is empty")
	}

	if u, err := url.Parse(input); err == nil && u.IsAbs() && u.Host != "" {
		return input, nil
	}

	httpsURLRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return "", fmt.Errorf("create regexp: %w", err)
	}

	if match := httpsURLRe.FindString(input); match != "" {
		return strings.TrimSpace(match), nil
	}

	return "", feederr.New(feederr.InvalidInput, "no feed URL found in input")
}
