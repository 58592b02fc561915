package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
)

const testToken = "test-token"

type testEnv struct {
	api      *httptest.Server
	upstream *httptest.Server
	db       *database.Database
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Blog</title><link>https://example.com</link>
<item><title>First</title><link>https://example.com/1</link><pubDate>Mon, 06 Jul 2026 10:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://example.com/2</link><pubDate>Tue, 07 Jul 2026 10:00:00 GMT</pubDate></item>
</channel></rss>`)
	}))
	t.Cleanup(upstream.Close)

	log := slog.Default()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"), log)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("failed to close test db: %v", closeErr)
		}
	})

	if _, err = db.CreateUser(context.Background(), testToken); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	svc := feed.NewService(
		db,
		feed.NewFetcher(nil, nil, log),
		feed.NewParser(log),
		feed.NewYouTubeClient("test-key", nil, log),
		nil,
		nil,
		log)

	api := httptest.NewServer(New(db, svc, "cron-secret", log).Handler())
	t.Cleanup(api.Close)

	return &testEnv{api: api, upstream: upstream, db: db}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.api.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.api.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return resp, decoded
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind feederr.Kind
		want int
	}{
		{feederr.InvalidInput, http.StatusBadRequest},
		{feederr.MissingCredential, http.StatusBadRequest},
		{feederr.Unauthorized, http.StatusUnauthorized},
		{feederr.NotFound, http.StatusNotFound},
		{feederr.Conflict, http.StatusConflict},
		{feederr.Timeout, http.StatusGatewayTimeout},
		{feederr.FetchFailed, http.StatusBadGateway},
		{feederr.ParseFailed, http.StatusBadGateway},
		{feederr.UpstreamError, http.StatusBadGateway},
		{feederr.Internal, http.StatusInternalServerError},
	}

	for _, test := range tests {
		if got := statusForKind(test.kind); got != test.want {
			t.Errorf("unexpected status for %v: got %d want %d", test.kind, got, test.want)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/feeds", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status without token: %d", resp.StatusCode)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message in response")
	}

	resp, _ = env.request(t, http.MethodGet, "/api/feeds", "wrong-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status for unknown token: %d", resp.StatusCode)
	}
}

func TestFeedLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/feeds", testToken, map[string]string{
		"input": env.upstream.URL,
		"type":  "rss",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status for add: %d (%v)", resp.StatusCode, body)
	}
	if got := body["new_items"].(float64); got != 2 {
		t.Fatalf("unexpected new item count: %v", got)
	}

	feedID := int64(body["feed"].(map[string]any)["id"].(float64))

	resp, body = env.request(t, http.MethodPost, "/api/feeds", testToken, map[string]string{
		"input": env.upstream.URL,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected status for duplicate add: %d (%v)", resp.StatusCode, body)
	}

	resp, body = env.request(t, http.MethodGet, "/api/feeds", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for list: %d", resp.StatusCode)
	}
	if feeds := body["feeds"].([]any); len(feeds) != 1 {
		t.Fatalf("unexpected feed count: %d", len(feeds))
	}

	path := fmt.Sprintf("/api/feeds/%d/refresh", feedID)
	resp, body = env.request(t, http.MethodPost, path, testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for refresh: %d (%v)", resp.StatusCode, body)
	}
	if got := body["new_items"].(float64); got != 0 {
		t.Fatalf("expected idempotent refresh, got %v new items", got)
	}

	resp, body = env.request(t, http.MethodGet, "/api/items", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for items: %d", resp.StatusCode)
	}
	items := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("unexpected item count: %d", len(items))
	}

	itemID := int64(items[0].(map[string]any)["id"].(float64))

	path = fmt.Sprintf("/api/items/%d/state", itemID)
	resp, _ = env.request(t, http.MethodPatch, path, testToken, map[string]bool{"is_read": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for state patch: %d", resp.StatusCode)
	}

	resp, body = env.request(t, http.MethodGet, "/api/items?unread=true", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for unread items: %d", resp.StatusCode)
	}
	if unread := body["items"].([]any); len(unread) != 1 {
		t.Fatalf("unexpected unread count: %d", len(unread))
	}

	path = fmt.Sprintf("/api/feeds/%d", feedID)
	resp, _ = env.request(t, http.MethodDelete, path, testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status for delete: %d", resp.StatusCode)
	}

	resp, _ = env.request(t, http.MethodDelete, path, testToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status for second delete: %d", resp.StatusCode)
	}
}

func TestSetItemStateRequiresFlags(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPatch, "/api/items/1/state", testToken, map[string]bool{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status for empty patch: %d", resp.StatusCode)
	}
}

func TestPreviewRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/preview?type=atom&input=x", testToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status for unknown type: %d", resp.StatusCode)
	}
}

func TestCronRefreshSecret(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.api.URL+"/api/cron/refresh", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, err := env.api.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status without secret: %d", resp.StatusCode)
	}

	req.Header.Set("X-Cron-Secret", "cron-secret")
	resp, err = env.api.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status with secret: %d", resp.StatusCode)
	}

	var body map[string]any
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body["feeds"]; !ok {
		t.Fatalf("expected feeds count in response, got %v", body)
	}
}

func TestImageProxy(t *testing.T) {
	env := newTestEnv(t)

	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer image.Close()

	resp, err := env.api.Client().Get(env.api.URL + "/api/image?url=" + image.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=86400" {
		t.Fatalf("unexpected cache control: %q", got)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if string(body) != "png-bytes" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestImageProxyRejectsBadURL(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.api.Client().Get(env.api.URL + "/api/image?url=not-a-url")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}
