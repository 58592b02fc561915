package feed

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/mmcdole/gofeed"
)

const maxDescriptionChars = 1000

type itemField func(*gofeed.Item) string

// Fallback chains, first non-empty wins. Kept in one place so the resolution
// order stays auditable instead of being scattered across call sites.
var (
	rssDescriptionChain = []itemField{itemDescription, itemEncodedContent}
	rssThumbnailChain   = []itemField{itemImageURL, mediaThumbnail, mediaContentURL, imageEnclosureURL}
)

// NormalizeRSSItems maps every item of a parsed feed into the canonical item
// shape, in document order. Document order is not assumed chronological and
// is never re-sorted here.
func NormalizeRSSItems(parsed *gofeed.Feed, now time.Time) []domain.NormalizedItem {
	items := make([]domain.NormalizedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, NormalizeRSSItem(item, now))
	}

	return items
}

// NormalizeRSSItem is pure apart from the ingestion-time fallback: an item
// without any upstream date gets now as its timestamp and is flagged as
// inferred so downstream recency ordering can tell the difference.
func NormalizeRSSItem(item *gofeed.Item, now time.Time) domain.NormalizedItem {
	published := now
	inferred := true

	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
		inferred = false
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
		inferred = false
	}

	return domain.NormalizedItem{
		Title:             strings.TrimSpace(item.Title),
		Link:              strings.TrimSpace(item.Link),
		Description:       Snippet(resolveField(item, rssDescriptionChain), maxDescriptionChars),
		PublishedAt:       published,
		PublishedInferred: inferred,
		Thumbnail:         resolveField(item, rssThumbnailChain),
		SourceType:        domain.FeedTypeRSS,
	}
}

func resolveField(item *gofeed.Item, chain []itemField) string {
	for _, extract := range chain {
		if v := strings.TrimSpace(extract(item)); v != "" {
			return v
		}
	}

	return ""
}

func itemDescription(item *gofeed.Item) string {
	return item.Description
}

func itemEncodedContent(item *gofeed.Item) string {
	return item.Content
}

func itemImageURL(item *gofeed.Item) string {
	if item.Image == nil {
		return ""
	}

	return item.Image.URL
}

func mediaThumbnail(item *gofeed.Item) string {
	return mediaExtensionURL(item, "thumbnail")
}

func mediaContentURL(item *gofeed.Item) string {
	return mediaExtensionURL(item, "content")
}

func mediaExtensionURL(item *gofeed.Item, name string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}

	for _, ext := range media[name] {
		if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
			return u
		}
	}

	return ""
}

func imageEnclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}

	return ""
}

// Snippet renders HTML content as collapsed plain text capped at max runes,
// so raw markup is never stored as an item's primary description.
func Snippet(html string, max int) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	text := html
	if strings.ContainsAny(html, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			text = doc.Text()
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	return strings.TrimSpace(string(runes[:max])) + "..."
}
