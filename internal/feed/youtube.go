package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
)

const (
	youtubeAPIBaseURL = "https://www.googleapis.com/youtube/v3"
	youtubeWatchURL   = "https://www.youtube.com/watch?v="
	youtubeChannelURL = "https://www.youtube.com/channel/"

	// Only the first page of uploads is fetched; callers must not assume
	// full channel history.
	maxUploadResults = 10

	maxChannelSearchResults = 10

	youtubeClientTimeout = 10 * time.Second
)

// YouTubeClient is a thin Data API v3 client covering exactly the calls the
// ingestion core needs: handle resolution, channel details, uploads listing,
// and channel search. Credentials and the HTTP client are injected.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func NewYouTubeClient(apiKey string, client *http.Client, log *slog.Logger) *YouTubeClient {
	if client == nil {
		client = &http.Client{Timeout: youtubeClientTimeout}
	}

	return &YouTubeClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: youtubeAPIBaseURL,
		client:  client,
		log:     log,
	}
}

// ChannelMeta describes a channel for preview and subscription purposes.
type ChannelMeta struct {
	ChannelID   string
	URL         string
	Title       string
	Description string
	Thumbnail   string

	uploadsPlaylistID string
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytSnippet struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	PublishedAt time.Time              `json:"publishedAt"`
	ChannelID   string                 `json:"channelId"`
	Thumbnails  map[string]ytThumbnail `json:"thumbnails"`
	ResourceID  struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type ytErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ResolveHandle maps an "@name" handle to a channel ID. This is a distinct
// upstream call and runs before any channel-details lookup.
func (c *YouTubeClient) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return "", feederr.New(feederr.InvalidInput, "channel handle is empty")
	}

	params := url.Values{}
	params.Set("part", "id")
	params.Set("forHandle", handle)

	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}

	if err := c.getJSON(ctx, "channels", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Items) == 0 {
		return "", feederr.Newf(feederr.NotFound, "no channel found for handle @%s", handle)
	}

	return resp.Items[0].ID, nil
}

// ChannelMeta fetches snippet and contentDetails for a channel ID.
func (c *YouTubeClient) ChannelMeta(ctx context.Context, channelID string) (*ChannelMeta, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, feederr.New(feederr.InvalidInput, "channel ID is empty")
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", channelID)

	var resp struct {
		Items []struct {
			ID             string    `json:"id"`
			Snippet        ytSnippet `json:"snippet"`
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}

	if err := c.getJSON(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, feederr.Newf(feederr.NotFound, "no channel found for ID %s", channelID)
	}

	item := resp.Items[0]

	return &ChannelMeta{
		ChannelID:         item.ID,
		URL:               youtubeChannelURL + item.ID,
		Title:             strings.TrimSpace(item.Snippet.Title),
		Description:       strings.TrimSpace(item.Snippet.Description),
		Thumbnail:         pickThumbnail(item.Snippet.Thumbnails),
		uploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

// ChannelVideos resolves input (a channel ID or an @handle) and returns the
// channel metadata plus its most recent uploads in the canonical item shape.
// A channel without an uploads playlist yields an explicit empty item list
// and no playlist-items call.
func (c *YouTubeClient) ChannelVideos(
	ctx context.Context,
	input string,
) (*ChannelMeta, []domain.NormalizedItem, error) {
	channelID := strings.TrimSpace(input)
	if strings.HasPrefix(channelID, "@") {
		resolved, err := c.ResolveHandle(ctx, channelID)
		if err != nil {
			return nil, nil, err
		}
		channelID = resolved
	}

	meta, err := c.ChannelMeta(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}

	if meta.uploadsPlaylistID == "" {
		c.log.InfoContext(ctx, "Channel has no uploads playlist",
			"channelID", meta.ChannelID)

		return meta, nil, nil
	}

	items, err := c.playlistVideos(ctx, meta.uploadsPlaylistID)
	if err != nil {
		return nil, nil, err
	}

	return meta, items, nil
}

func (c *YouTubeClient) playlistVideos(
	ctx context.Context,
	playlistID string,
) ([]domain.NormalizedItem, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", fmt.Sprintf("%d", maxUploadResults))

	var resp struct {
		Items []struct {
			Snippet ytSnippet `json:"snippet"`
		} `json:"items"`
	}

	if err := c.getJSON(ctx, "playlistItems", params, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]domain.NormalizedItem, 0, len(resp.Items))

	for _, it := range resp.Items {
		videoID := strings.TrimSpace(it.Snippet.ResourceID.VideoID)
		if videoID == "" {
			continue
		}

		published := it.Snippet.PublishedAt
		inferred := false
		if published.IsZero() {
			published = now
			inferred = true
		}

		items = append(items, domain.NormalizedItem{
			Title:             strings.TrimSpace(it.Snippet.Title),
			Link:              youtubeWatchURL + videoID,
			Description:       Snippet(it.Snippet.Description, maxDescriptionChars),
			PublishedAt:       published,
			PublishedInferred: inferred,
			Thumbnail:         pickThumbnail(it.Snippet.Thumbnails),
			SourceType:        domain.FeedTypeYouTube,
		})
	}

	return items, nil
}

// SearchChannels runs a channel-type search and normalizes the results for
// display.
func (c *YouTubeClient) SearchChannels(
	ctx context.Context,
	query string,
) ([]domain.ChannelSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, feederr.New(feederr.InvalidInput, "search query is empty")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", maxChannelSearchResults))

	var resp struct {
		Items []struct {
			ID struct {
				ChannelID string `json:"channelId"`
			} `json:"id"`
			Snippet ytSnippet `json:"snippet"`
		} `json:"items"`
	}

	if err := c.getJSON(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	summaries := make([]domain.ChannelSummary, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.ChannelID == "" {
			continue
		}

		summaries = append(summaries, domain.ChannelSummary{
			ChannelID:   it.ID.ChannelID,
			Title:       strings.TrimSpace(it.Snippet.Title),
			Description: strings.TrimSpace(it.Snippet.Description),
			Thumbnail:   pickThumbnail(it.Snippet.Thumbnails),
		})
	}

	return summaries, nil
}

func (c *YouTubeClient) getJSON(
	ctx context.Context,
	endpoint string,
	params url.Values,
	out any,
) error {
	if c.apiKey == "" {
		return feederr.New(feederr.MissingCredential, "YouTube API key is not configured")
	}

	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return feederr.Wrap(feederr.Timeout, "YouTube API call timed out", err)
		}

		return feederr.Wrap(feederr.FetchFailed, "YouTube API call failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"endpoint", endpoint,
				"operation", "getJSON")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return feederr.Wrap(feederr.FetchFailed, "read response body", err)
	}

	// Provider errors arrive as {error:{message}} payloads; the message is
	// surfaced verbatim, never swallowed.
	var envelope ytErrorEnvelope
	if unmarshalErr := json.Unmarshal(body, &envelope); unmarshalErr == nil &&
		envelope.Error.Message != "" {
		return feederr.New(feederr.UpstreamError, envelope.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return feederr.Newf(feederr.FetchFailed, "unexpected status %d", resp.StatusCode)
	}

	if err = json.Unmarshal(body, out); err != nil {
		return feederr.Wrap(feederr.UpstreamError, "malformed API response", err)
	}

	return nil
}

// pickThumbnail prefers mid-sized thumbnails, falling back through the sizes
// the API commonly returns.
func pickThumbnail(thumbnails map[string]ytThumbnail) string {
	for _, size := range []string{"medium", "high", "standard", "default"} {
		if t, ok := thumbnails[size]; ok && strings.TrimSpace(t.URL) != "" {
			return strings.TrimSpace(t.URL)
		}
	}

	return ""
}
