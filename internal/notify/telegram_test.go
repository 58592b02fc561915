package notify

import (
	"strings"
	"testing"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
)

func TestFormatResultsAsMessagesEmpty(t *testing.T) {
	if got := formatResultsAsMessages(nil); len(got) != 0 {
		t.Fatalf("expected no messages for empty results, got %d", len(got))
	}

	results := []feed.RefreshResult{
		{Feed: domain.Feed{Title: "Quiet Feed", URL: "https://example.com/feed.xml"}},
	}
	if got := formatResultsAsMessages(results); len(got) != 0 {
		t.Fatalf("expected no messages for results without new items, got %d", len(got))
	}
}

func TestFormatResultsAsMessagesGroupsByFeed(t *testing.T) {
	results := []feed.RefreshResult{
		{
			Feed:     domain.Feed{Title: "Blog A", URL: "https://a.example.com/feed.xml"},
			NewCount: 2,
			NewItems: []domain.NormalizedItem{
				{Title: "First post", Link: "https://a.example.com/1"},
				{Title: "Second post", Link: "https://a.example.com/2"},
			},
		},
		{
			Feed:     domain.Feed{Title: "Blog B", URL: "https://b.example.com/feed.xml"},
			NewCount: 1,
			NewItems: []domain.NormalizedItem{
				{Title: "", Link: "https://b.example.com/1"},
			},
		},
	}

	messages := formatResultsAsMessages(results)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}

	message := messages[0]
	for _, want := range []string{
		"Blog A",
		"Blog B",
		"https://a.example.com/1",
		"https://a.example.com/2",
		// An untitled item falls back to its link as the label.
		"(https://b.example.com/1)",
	} {
		if !strings.Contains(message, want) {
			t.Fatalf("expected message to contain %q, got:\n%s", want, message)
		}
	}
}

func TestFormatResultsAsMessagesChunksUnderLengthLimit(t *testing.T) {
	longTitle := strings.Repeat("a", 200)

	items := make([]domain.NormalizedItem, 40)
	for i := range items {
		items[i] = domain.NormalizedItem{
			Title: longTitle,
			Link:  "https://example.com/post",
		}
	}

	results := []feed.RefreshResult{{
		Feed:     domain.Feed{Title: "Busy Feed", URL: "https://example.com/feed.xml"},
		NewCount: int64(len(items)),
		NewItems: items,
	}}

	messages := formatResultsAsMessages(results)
	if len(messages) < 2 {
		t.Fatalf("expected chunked output, got %d messages", len(messages))
	}

	for i, message := range messages {
		if len(message) > telegramMessageMaxLength {
			t.Fatalf("message %d exceeds length limit: %d", i, len(message))
		}
	}
}

func TestNewTelegramNotifierEmptyToken(t *testing.T) {
	if _, err := NewTelegramNotifier("   ", nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
