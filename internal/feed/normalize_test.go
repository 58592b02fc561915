package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

func TestNormalizeRSSItemTimestampFallback(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	published := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		item         *gofeed.Item
		want         time.Time
		wantInferred bool
	}{
		{
			"published wins over updated",
			&gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated},
			published,
			false,
		},
		{
			"updated used when published is missing",
			&gofeed.Item{UpdatedParsed: &updated},
			updated,
			false,
		},
		{
			"missing dates fall back to now and are flagged",
			&gofeed.Item{},
			now,
			true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := NormalizeRSSItem(test.item, now)

			if !got.PublishedAt.Equal(test.want) {
				t.Fatalf("unexpected timestamp: got %v want %v", got.PublishedAt, test.want)
			}

			if got.PublishedInferred != test.wantInferred {
				t.Fatalf("unexpected inferred flag: got %v want %v",
					got.PublishedInferred, test.wantInferred)
			}
		})
	}
}

func TestNormalizeRSSItemDescriptionFallsBackToContent(t *testing.T) {
	item := &gofeed.Item{
		Title:   "Post",
		Link:    "https://example.com/post",
		Content: "<p>full <b>content</b></p>",
	}

	got := NormalizeRSSItem(item, time.Now().UTC())

	if got.Description != "full content" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
}

func TestNormalizeRSSItemToleratesMissingOptionalFields(t *testing.T) {
	now := time.Now().UTC()
	got := NormalizeRSSItem(&gofeed.Item{Link: "https://example.com/post"}, now)

	want := domain.NormalizedItem{
		Link:              "https://example.com/post",
		PublishedAt:       now,
		PublishedInferred: true,
		SourceType:        domain.FeedTypeRSS,
	}

	if got != want {
		t.Fatalf("unexpected normalized item: got %+v want %+v", got, want)
	}
}

func TestNormalizeRSSItemThumbnailChain(t *testing.T) {
	mediaExt := func(name, url string) ext.Extensions {
		return ext.Extensions{
			"media": {
				name: []ext.Extension{{Name: name, Attrs: map[string]string{"url": url}}},
			},
		}
	}

	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			"item image wins",
			&gofeed.Item{
				Image:      &gofeed.Image{URL: "https://example.com/image.png"},
				Extensions: mediaExt("thumbnail", "https://example.com/thumb.png"),
			},
			"https://example.com/image.png",
		},
		{
			"media thumbnail",
			&gofeed.Item{Extensions: mediaExt("thumbnail", "https://example.com/thumb.png")},
			"https://example.com/thumb.png",
		},
		{
			"media content",
			&gofeed.Item{Extensions: mediaExt("content", "https://example.com/content.jpg")},
			"https://example.com/content.jpg",
		},
		{
			"image enclosure",
			&gofeed.Item{Enclosures: []*gofeed.Enclosure{
				{Type: "audio/mpeg", URL: "https://example.com/episode.mp3"},
				{Type: "image/jpeg", URL: "https://example.com/cover.jpg"},
			}},
			"https://example.com/cover.jpg",
		},
		{
			"nothing available",
			&gofeed.Item{},
			"",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := NormalizeRSSItem(test.item, time.Now().UTC())

			if got.Thumbnail != test.want {
				t.Fatalf("unexpected thumbnail: got %q want %q", got.Thumbnail, test.want)
			}
		})
	}
}

func TestNormalizeRSSItemsPreservesDocumentOrder(t *testing.T) {
	parsed := &gofeed.Feed{
		Items: []*gofeed.Item{
			{Title: "third", Link: "https://example.com/3"},
			{Title: "first", Link: "https://example.com/1"},
			{Title: "second", Link: "https://example.com/2"},
		},
	}

	items := NormalizeRSSItems(parsed, time.Now().UTC())

	want := []string{"third", "first", "second"}
	for i, title := range want {
		if items[i].Title != title {
			t.Fatalf("unexpected title at index %d: got %q want %q", i, items[i].Title, title)
		}
	}
}

func TestSnippetStripsHTMLAndCollapsesWhitespace(t *testing.T) {
	got := Snippet("<p>Hello&nbsp;\n  <b>world</b></p>", 100)

	if got != "Hello world" {
		t.Fatalf("unexpected snippet: %q", got)
	}
}

func TestSnippetTruncatesAtRuneBoundary(t *testing.T) {
	got := Snippet(strings.Repeat("я", 30), 10)

	if got != strings.Repeat("я", 10)+"..." {
		t.Fatalf("unexpected truncated snippet: %q", got)
	}
}

func TestSnippetEmptyInput(t *testing.T) {
	if got := Snippet("   ", 100); got != "" {
		t.Fatalf("expected empty snippet, got %q", got)
	}
}
