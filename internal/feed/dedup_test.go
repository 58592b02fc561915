package feed

import (
	"testing"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
)

func linksOf(items []domain.NormalizedItem) []string {
	links := make([]string, 0, len(items))
	for _, item := range items {
		links = append(links, item.Link)
	}

	return links
}

func TestPartitionSplitsAgainstExistingLinks(t *testing.T) {
	existing := map[string]struct{}{
		"https://example.com/a": {},
	}
	candidates := []domain.NormalizedItem{
		{Link: "https://example.com/a"},
		{Link: "https://example.com/b"},
	}

	fresh, duplicate := Partition(existing, candidates)

	if len(fresh) != 1 || fresh[0].Link != "https://example.com/b" {
		t.Fatalf("unexpected fresh set: %v", linksOf(fresh))
	}

	if len(duplicate) != 1 || duplicate[0].Link != "https://example.com/a" {
		t.Fatalf("unexpected duplicate set: %v", linksOf(duplicate))
	}
}

func TestPartitionIsIdempotent(t *testing.T) {
	candidates := []domain.NormalizedItem{
		{Link: "https://example.com/a"},
		{Link: "https://example.com/b"},
	}

	fresh, _ := Partition(map[string]struct{}{}, candidates)
	if len(fresh) != len(candidates) {
		t.Fatalf("expected all candidates fresh on first pass, got %d", len(fresh))
	}

	stored := make(map[string]struct{}, len(fresh))
	for _, item := range fresh {
		stored[item.Link] = struct{}{}
	}

	fresh, duplicate := Partition(stored, candidates)
	if len(fresh) != 0 {
		t.Fatalf("expected zero fresh items on re-run, got %v", linksOf(fresh))
	}

	if len(duplicate) != len(candidates) {
		t.Fatalf("expected every candidate duplicated on re-run, got %d", len(duplicate))
	}
}

func TestPartitionCollapsesInBatchDuplicates(t *testing.T) {
	candidates := []domain.NormalizedItem{
		{Link: "https://example.com/a", Title: "first"},
		{Link: "https://example.com/a", Title: "second"},
	}

	fresh, duplicate := Partition(map[string]struct{}{}, candidates)

	if len(fresh) != 1 || fresh[0].Title != "first" {
		t.Fatalf("expected first occurrence to win, got %+v", fresh)
	}

	if len(duplicate) != 1 {
		t.Fatalf("expected one in-batch duplicate, got %d", len(duplicate))
	}
}

func TestPartitionDropsEmptyLinks(t *testing.T) {
	candidates := []domain.NormalizedItem{
		{Link: "   "},
		{Link: ""},
		{Link: "https://example.com/a"},
	}

	fresh, duplicate := Partition(map[string]struct{}{}, candidates)

	if len(fresh) != 1 {
		t.Fatalf("expected one fresh item, got %v", linksOf(fresh))
	}

	if len(duplicate) != 0 {
		t.Fatalf("expected no duplicates, got %v", linksOf(duplicate))
	}
}

func TestPartitionTreatsLinkVariantsAsDistinct(t *testing.T) {
	existing := map[string]struct{}{
		"https://example.com/a": {},
	}
	candidates := []domain.NormalizedItem{
		{Link: "https://example.com/a/"},
		{Link: "https://example.com/a?utm_source=feed"},
	}

	fresh, _ := Partition(existing, candidates)

	if len(fresh) != 2 {
		t.Fatalf("expected exact-match dedup to keep variants, got %v", linksOf(fresh))
	}
}
