package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
	"github.com/go-chi/chi/v5"
)

type feedResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	ChannelID   string `json:"channel_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
}

type itemResponse struct {
	ID                int64  `json:"id"`
	FeedID            int64  `json:"feed_id"`
	Title             string `json:"title"`
	Link              string `json:"link"`
	Description       string `json:"description"`
	PublishedAt       string `json:"published_at"`
	PublishedInferred bool   `json:"published_inferred"`
	ThumbnailURL      string `json:"thumbnail_url,omitempty"`
	ItemType          string `json:"item_type"`
	IsRead            bool   `json:"is_read"`
	IsFavorite        bool   `json:"is_favorite"`
	IsReadLater       bool   `json:"is_read_later"`
}

type previewItemResponse struct {
	Title             string `json:"title"`
	Link              string `json:"link"`
	Description       string `json:"description"`
	PublishedAt       string `json:"published_at"`
	PublishedInferred bool   `json:"published_inferred"`
	Thumbnail         string `json:"thumbnail,omitempty"`
}

func toFeedResponse(f domain.Feed) feedResponse {
	return feedResponse{
		ID:          f.ID,
		Type:        string(f.Type),
		URL:         f.URL,
		ChannelID:   f.ChannelID,
		Title:       f.Title,
		Description: f.Description,
		ImageURL:    f.ImageURL,
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPreviewItems(items []domain.NormalizedItem) []previewItemResponse {
	out := make([]previewItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, previewItemResponse{
			Title:             item.Title,
			Link:              item.Link,
			Description:       item.Description,
			PublishedAt:       item.PublishedAt.UTC().Format(time.RFC3339),
			PublishedInferred: item.PublishedInferred,
			Thumbnail:         item.Thumbnail,
		})
	}

	return out
}

func parseFeedType(raw string) (domain.FeedType, error) {
	switch domain.FeedType(raw) {
	case domain.FeedTypeRSS, "":
		return domain.FeedTypeRSS, nil
	case domain.FeedTypeYouTube:
		return domain.FeedTypeYouTube, nil
	default:
		return "", feederr.Newf(feederr.InvalidInput, "unknown feed type %q", raw)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	feedType, err := parseFeedType(r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	preview, err := s.svc.Preview(r.Context(), r.URL.Query().Get("input"), feedType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"type":        string(preview.Type),
		"url":         preview.URL,
		"channel_id":  preview.ChannelID,
		"title":       preview.Title,
		"description": preview.Description,
		"image_url":   preview.ImageURL,
		"items":       toPreviewItems(preview.Items),
	})
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.svc.ListFeeds(r.Context(), userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, toFeedResponse(f))
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"feeds": out})
}

func (s *Server) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
		Type  string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, feederr.Wrap(feederr.InvalidInput, "malformed request body", err))
		return
	}

	feedType, err := parseFeedType(req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	added, newItems, err := s.svc.AddFeed(r.Context(), userFrom(r).ID, req.Input, feedType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, map[string]any{
		"feed":      toFeedResponse(*added),
		"new_items": newItems,
	})
}

func (s *Server) handleRemoveFeed(w http.ResponseWriter, r *http.Request) {
	feedID, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		s.writeError(w, r, feederr.New(feederr.InvalidInput, "feed ID must be an integer"))
		return
	}

	if err = s.svc.RemoveFeed(r.Context(), userFrom(r).ID, feedID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefreshFeed(w http.ResponseWriter, r *http.Request) {
	feedID, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		s.writeError(w, r, feederr.New(feederr.InvalidInput, "feed ID must be an integer"))
		return
	}

	newItems, err := s.svc.RefreshFeed(r.Context(), userFrom(r).ID, feedID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"new_items": newItems})
}

func (s *Server) handleSearchChannels(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.SearchChannels(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]map[string]string, 0, len(summaries))
	for _, c := range summaries {
		out = append(out, map[string]string{
			"channel_id":  c.ChannelID,
			"title":       c.Title,
			"description": c.Description,
			"thumbnail":   c.Thumbnail,
		})
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"channels": out})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items, err := s.svc.ListItems(r.Context(), userFrom(r).ID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{
			ID:                item.ID,
			FeedID:            item.FeedID,
			Title:             item.Title,
			Link:              item.Link,
			Description:       item.Description,
			PublishedAt:       item.PublishedAt.UTC().Format(time.RFC3339),
			PublishedInferred: item.PublishedInferred,
			ThumbnailURL:      item.ThumbnailURL,
			ItemType:          string(item.ItemType),
			IsRead:            item.IsRead,
			IsFavorite:        item.IsFavorite,
			IsReadLater:       item.IsReadLater,
		})
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"items": out})
}

func parseItemFilter(r *http.Request) (database.ItemFilter, error) {
	var filter database.ItemFilter
	q := r.URL.Query()

	if raw := q.Get("feed_id"); raw != "" {
		feedID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, feederr.New(feederr.InvalidInput, "feed_id must be an integer")
		}
		filter.FeedID = &feedID
	}

	for name, dst := range map[string]**bool{
		"unread":     &filter.Unread,
		"favorite":   &filter.Favorite,
		"read_later": &filter.ReadLater,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}

		value, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, feederr.Newf(feederr.InvalidInput, "%s must be a boolean", name)
		}
		*dst = &value
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			return filter, feederr.New(feederr.InvalidInput, "limit must be a positive integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func (s *Server) handleSetItemState(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		s.writeError(w, r, feederr.New(feederr.InvalidInput, "item ID must be an integer"))
		return
	}

	var req struct {
		IsRead      *bool `json:"is_read"`
		IsFavorite  *bool `json:"is_favorite"`
		IsReadLater *bool `json:"is_read_later"`
	}
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, feederr.Wrap(feederr.InvalidInput, "malformed request body", err))
		return
	}

	if req.IsRead == nil && req.IsFavorite == nil && req.IsReadLater == nil {
		s.writeError(w, r, feederr.New(feederr.InvalidInput, "no interaction flags provided"))
		return
	}

	err = s.svc.SetItemState(r.Context(), userFrom(r).ID, itemID, database.InteractionPatch{
		IsRead:      req.IsRead,
		IsFavorite:  req.IsFavorite,
		IsReadLater: req.IsReadLater,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Digest(r.Context(), userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleCronRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" || r.Header.Get("X-Cron-Secret") != s.cronSecret {
		s.writeError(w, r, feederr.New(feederr.Unauthorized, "invalid cron secret"))
		return
	}

	results, err := s.svc.RefreshAll(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Cron refresh finished with errors",
			"error", err,
			"refreshedFeeds", len(results))
	}

	var total int64
	for _, result := range results {
		total += result.NewCount
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"feeds":     len(results),
		"new_items": total,
	})
}
