package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/summarizer"
)

const (
	digestMaxItems        = 20
	digestMaxParallelism  = 4
	fallbackSummaryMaxLen = 200
)

// DigestEntry is one summarized unread item.
type DigestEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
}

// Digest summarizes the caller's most recent unread items. Without a
// configured summarizer (or on summarizer failure) the description is
// truncated instead; the digest never fails because summarization did.
func (s *Service) Digest(ctx context.Context, userID int64) ([]DigestEntry, error) {
	unread := true

	items, err := s.db.GetItemsWithState(ctx, userID, database.ItemFilter{
		Unread: &unread,
		Limit:  digestMaxItems,
	})
	if err != nil {
		return nil, fmt.Errorf("get unread items: %w", err)
	}

	entries := make([]DigestEntry, len(items))
	for i, item := range items {
		entries[i] = DigestEntry{
			Title: item.Title,
			Link:  item.Link,
		}
	}

	workerCount := digestMaxParallelism
	if workerCount > len(items) {
		workerCount = len(items)
	}
	if workerCount == 0 {
		return entries, nil
	}

	tasks := make(chan int)
	var wg sync.WaitGroup

	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range tasks {
				entries[i].Summary = s.summarizeItem(ctx, items[i].Title, items[i].Description, items[i].Link)
			}
		}()
	}

	for i := range items {
		tasks <- i
	}

	close(tasks)
	wg.Wait()

	return entries, nil
}

func (s *Service) summarizeItem(ctx context.Context, title, description, link string) string {
	text := strings.TrimSpace(strings.TrimSpace(title) + "\n" + strings.TrimSpace(description))
	if text == "" {
		return link
	}

	if s.summarizer == nil {
		return fallbackSummary(text, link)
	}

	summary, err := s.summarizer.Summarize(ctx, summarizer.Input{
		Text:      text,
		SourceURL: link,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize item",
			"error", err,
			"link", link,
			"fallback", true,
			"textLen", len(text))

		return fallbackSummary(text, link)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fallbackSummary(text, link)
	}

	return summary
}

func fallbackSummary(text string, itemURL string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return itemURL
	}

	runes := []rune(normalized)
	if len(runes) <= fallbackSummaryMaxLen {
		return normalized
	}

	trimmed := strings.TrimSpace(string(runes[:fallbackSummaryMaxLen]))
	if trimmed == "" {
		return normalized
	}

	return trimmed + "..."
}
