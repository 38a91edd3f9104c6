package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediacache/internal/api"
	"mediacache/internal/httpapi"
	"mediacache/internal/logging"
	"mediacache/internal/mediacache"
	"mediacache/internal/processor"
	"mediacache/internal/properties"
	"mediacache/internal/testsupport"
)

type fixture struct {
	cache   *mediacache.Manager
	props   *properties.Store
	server  *httptest.Server
	logPath string
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	registry := prometheus.NewRegistry()
	f := &fixture{
		cache: mediacache.NewManager(db),
		props: properties.New(db),
		now:   time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.logPath = filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	testsupport.WriteBytes(t, f.logPath, []byte("cache_item_id=a queued\ncache_item_id=b queued\ncache_item_id=a ok\n"))
	processor.NewMetrics(registry)
	srv := httpapi.New(httpapi.Options{
		Items:      f.cache,
		LastRun:    f.props,
		Gatherer:   registry,
		LogPath:    f.logPath,
		Registerer: registry,
		Logger:     logging.NewNop(),
		Now:        func() time.Time { return f.now },
	})
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func (f *fixture) enqueue(t *testing.T, fileID, templateKey string) *mediacache.CacheItem {
	t.Helper()
	item, err := f.cache.Enqueue(context.Background(), mediacache.Identity{
		VolumeID: "media", FileID: fileID, FileVersion: 1, TemplateKey: templateKey, TemplateRevision: 1,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return item
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	var health api.HealthResponse
	resp := f.get(t, "/healthz", &health)
	if resp.StatusCode != http.StatusServiceUnavailable || health.Status != "degraded" {
		t.Fatalf("expected degraded before first run, got %d %+v", resp.StatusCode, health)
	}
	if len(health.Problems) != 1 || health.Problems[0] != processor.ProblemNeverRun {
		t.Fatalf("unexpected problems %v", health.Problems)
	}

	if err := f.props.SetTime(context.Background(), processor.PropertyNamespace, processor.PropertyLastRun, f.now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	health = api.HealthResponse{}
	resp = f.get(t, "/healthz", &health)
	if resp.StatusCode != http.StatusOK || health.Status != "ok" || health.LastRun == "" {
		t.Fatalf("expected ok, got %d %+v", resp.StatusCode, health)
	}
	if resp.Header.Get(httpapi.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestItemsEndpoints(t *testing.T) {
	f := newFixture(t)
	web := f.enqueue(t, "file-1", "web")
	f.enqueue(t, "file-2", "thumb")

	failed := web.Clone()
	failed.Fail(context.DeadlineExceeded, f.now)
	if err := f.cache.UpdateCacheItem(context.Background(), failed); err != nil {
		t.Fatal(err)
	}

	var list api.ItemListResponse
	if resp := f.get(t, "/api/items", &list); resp.StatusCode != http.StatusOK || len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d %+v", resp.StatusCode, list)
	}

	list = api.ItemListResponse{}
	f.get(t, "/api/items?cache_status=error", &list)
	if len(list.Items) != 1 || list.Items[0].ID != web.ID || list.Items[0].Error == "" {
		t.Fatalf("unexpected filtered items %+v", list.Items)
	}

	list = api.ItemListResponse{}
	f.get(t, "/api/items?template=thumb&queue_status=queued", &list)
	if len(list.Items) != 1 || list.Items[0].TemplateKey != "thumb" {
		t.Fatalf("unexpected template filter result %+v", list.Items)
	}

	var errResp api.ErrorResponse
	if resp := f.get(t, "/api/items?cache_status=bogus", &errResp); resp.StatusCode != http.StatusBadRequest || errResp.Error == "" {
		t.Fatalf("expected bad request, got %d %+v", resp.StatusCode, errResp)
	}
	if resp := f.get(t, "/api/items?limit=-1", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for negative limit, got %d", resp.StatusCode)
	}

	var one api.ItemResponse
	if resp := f.get(t, "/api/items/"+web.ID, &one); resp.StatusCode != http.StatusOK || one.Item.CacheStatus != "error" {
		t.Fatalf("unexpected item response %d %+v", resp.StatusCode, one)
	}
	if resp := f.get(t, "/api/items/does-not-exist", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var stats api.StatsResponse
	f.get(t, "/api/stats", &stats)
	if stats.Total != 2 || stats.ByCacheStatus["pending"] != 1 || stats.ByQueueStatus["error"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/items/abc", nil)

	resp, err := http.Get(f.server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	if !strings.Contains(text, `mediacache_http_requests_total{method="GET",route="/api/items/{id}",status="404"} 1`) {
		t.Fatalf("expected route-labelled request metric, got:\n%s", text)
	}
	if !strings.Contains(text, "mediacache_last_run_timestamp_seconds") {
		t.Fatal("expected processor metrics on the shared registry")
	}
}

func TestLogsEndpoint(t *testing.T) {
	f := newFixture(t)

	var tail api.LogsResponse
	if resp := f.get(t, "/api/logs?limit=2", &tail); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(tail.Lines) != 2 || tail.Lines[1] != "cache_item_id=a ok" {
		t.Fatalf("unexpected tail: %+v", tail)
	}

	var filtered api.LogsResponse
	f.get(t, "/api/logs?offset=0&item=cache_item_id%3Da", &filtered)
	if len(filtered.Lines) != 2 {
		t.Fatalf("expected 2 lines for item a, got %+v", filtered.Lines)
	}

	file, err := os.OpenFile(f.logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	_, _ = file.WriteString("cache_item_id=c queued\n")
	_ = file.Close()

	var next api.LogsResponse
	f.get(t, fmt.Sprintf("/api/logs?offset=%d", tail.Offset), &next)
	if len(next.Lines) != 1 || next.Lines[0] != "cache_item_id=c queued" {
		t.Fatalf("unexpected continuation: %+v", next)
	}

	if resp := f.get(t, "/api/logs?offset=abc", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad offset, got %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	var errResp api.ErrorResponse
	if resp := f.get(t, "/nope", &errResp); resp.StatusCode != http.StatusNotFound || errResp.Error != "not found" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, errResp)
	}
}
