package domain

import "time"

// FeedType discriminates subscribed source kinds.
type FeedType string

const (
	FeedTypeRSS     FeedType = "rss"
	FeedTypeYouTube FeedType = "youtube"
)

type User struct {
	ID             int64
	APIToken       string
	TelegramChatID *int64
	CreatedAt      time.Time
}

// Feed is one subscribed source owned by a user. URL holds the feed URL for
// RSS feeds and the canonical channel URL for YouTube feeds; ChannelID is set
// for YouTube feeds only.
type Feed struct {
	ID          int64
	UserID      int64
	Type        FeedType
	URL         string
	ChannelID   string
	Title       string
	Description string
	ImageURL    string
	IsActive    bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
}

// FeedItem is one stored entry or video. Link is the dedup key within a feed
// and items are immutable once ingested.
type FeedItem struct {
	ID                int64
	FeedID            int64
	Title             string
	Link              string
	Description       string
	PublishedAt       time.Time
	PublishedInferred bool
	ThumbnailURL      string
	ItemType          FeedType
	CreatedAt         time.Time
}

// Interaction is per-user per-item state. Flags are independent; the row is
// created lazily on first toggle.
type Interaction struct {
	UserID      int64
	ItemID      int64
	IsRead      bool
	IsFavorite  bool
	IsReadLater bool
}

// NormalizedItem is the canonical item shape produced by the normalizer for
// both RSS and YouTube sources, before any storage decision is made.
type NormalizedItem struct {
	Title             string
	Link              string
	Description       string
	PublishedAt       time.Time
	PublishedInferred bool
	Thumbnail         string
	SourceType        FeedType
}

// FeedPreview is the no-side-effect result of previewing a source before
// subscribing to it.
type FeedPreview struct {
	Type        FeedType
	URL         string
	ChannelID   string
	Title       string
	Description string
	ImageURL    string
	Items       []NormalizedItem
}

// ChannelSummary is a normalized YouTube channel search result.
type ChannelSummary struct {
	ChannelID   string
	Title       string
	Description string
	Thumbnail   string
}

// ItemWithState joins a stored item with the caller's interaction flags.
type ItemWithState struct {
	FeedItem
	IsRead      bool
	IsFavorite  bool
	IsReadLater bool
}
