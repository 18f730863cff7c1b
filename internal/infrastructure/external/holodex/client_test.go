package holodex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnquangdev/holo-archive/pkg/config"
)

func testClient(baseURL string) *Client {
	return NewClient(&config.HolodexConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		RatePerSec:  1000,
		Parallelism: 2,
	}, nil)
}

func TestChannel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/UC123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-APIKEY"); got != "test-key" {
			t.Fatalf("api key header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "UC123", "name": "Test Channel"})
	}))
	defer ts.Close()

	channel, err := testClient(ts.URL).Channel(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel.ID != "UC123" {
		t.Fatalf("channel id = %q", channel.ID)
	}
	if len(channel.Raw) == 0 {
		t.Fatal("raw payload not preserved")
	}
}

func TestChannelVideosPagination(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		videoType := r.URL.Path[len("/channels/UC123/"):]
		offset := r.URL.Query().Get("offset")

		var page []map[string]any
		if videoType == "videos" && offset == "0" {
			// full page forces a second request
			for i := 0; i < 50; i++ {
				page = append(page, map[string]any{"id": fmt.Sprintf("vid-%d", i)})
			}
		} else if videoType == "videos" && offset == "50" {
			page = []map[string]any{{"id": "vid-50"}}
		} else if videoType == "collabs" && offset == "0" {
			page = []map[string]any{{
				"id":      "collab-1",
				"channel": map[string]any{"id": "UC456"},
			}}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer ts.Close()

	videos, err := testClient(ts.URL).ChannelVideos(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 52 {
		t.Fatalf("got %d videos, want 52", len(videos))
	}

	last := videos[51]
	if last.ID != "collab-1" || last.Channel == nil || last.Channel.ID != "UC456" {
		t.Fatalf("unexpected collab video: %+v", last)
	}
	if videos[0].Channel != nil {
		t.Fatalf("own video should not carry an owning channel: %+v", videos[0])
	}
}

func TestGetClientErrorIsFatal(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	if _, err := testClient(ts.URL).Channel(context.Background(), "UC123"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("4xx response was retried %d times", calls)
	}
}
