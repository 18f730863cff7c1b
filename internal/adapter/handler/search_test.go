package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	dto "github.com/johnquangdev/holo-archive/internal/adapter/dto/search"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/cache"
	"github.com/johnquangdev/holo-archive/internal/storage"
	searchuc "github.com/johnquangdev/holo-archive/internal/usecase/search"
	"github.com/johnquangdev/holo-archive/pkg/config"
	"github.com/johnquangdev/holo-archive/pkg/validator"
)

func newTestRouter(t *testing.T, store *storage.Store, cacheStore cache.Cache) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Validator = validator.New()
	service := searchuc.NewService(store, nil)
	handler := NewSearch(service, cacheStore, time.Minute, nil)
	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	NewRouter(cfg, handler).Setup(e)
	return e
}

func seedStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "archive"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.CreateChannel("ch1", storage.ChannelMetadata{}); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	video, err := store.CreateVideo("vid1", storage.VideoMetadata{ChannelID: "ch1"})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	info, _ := json.Marshal(map[string]any{"id": "vid1", "title": "karaoke"})
	if err := video.SetInfo(storage.HolodexJSON, info); err != nil {
		t.Fatalf("SetInfo: %v", err)
	}
	if _, err := video.CreateSubtitleItem(storage.SubtitleMetadata{
		Source:       "youtube",
		Lang:         "en",
		SubtitleFile: "youtube.en.srt",
	}, "1\n00:00:01,000 --> 00:00:02,000\nhello world\n"); err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}
	return store
}

func TestSearchEndpoint(t *testing.T) {
	e := newTestRouter(t, seedStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?query=world", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Results[0].VideoID != "vid1" {
		t.Errorf("VideoID = %q", resp.Results[0].VideoID)
	}
	if resp.Cached {
		t.Error("fresh response marked cached")
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	e := newTestRouter(t, seedStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpointRejectsBadFilter(t *testing.T) {
	e := newTestRouter(t, seedStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?query=world&video_filter=no-colons", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpointServesFromCache(t *testing.T) {
	memory := cache.NewMemoryStore()
	e := newTestRouter(t, seedStore(t), memory)

	for i, wantCached := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodGet, "/v1/search?query=world", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
		var resp dto.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Cached != wantCached {
			t.Errorf("request %d cached = %v, want %v", i, resp.Cached, wantCached)
		}
		if resp.Count != 1 {
			t.Errorf("request %d count = %d", i, resp.Count)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestRouter(t, seedStore(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
