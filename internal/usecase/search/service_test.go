package search

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/johnquangdev/holo-archive/internal/storage"
)

const testSRT = `1
00:00:01,000 --> 00:00:03,000
hello world

2
00:00:05,000 --> 00:00:07,000
nothing here

3
00:00:30,000 --> 00:00:32,000
far away line

4
00:00:40,000 --> 00:00:42,000
another hello
`

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "archive"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func seedVideo(t *testing.T, store *storage.Store, videoID, lang, srt string) *storage.VideoRecord {
	t.Helper()
	channel, err := store.GetChannel("ch1")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if channel == nil {
		if _, err := store.CreateChannel("ch1", storage.ChannelMetadata{}); err != nil {
			t.Fatalf("CreateChannel: %v", err)
		}
	}

	video, err := store.CreateVideo(videoID, storage.VideoMetadata{ChannelID: "ch1"})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	info, _ := json.Marshal(map[string]any{
		"id":           videoID,
		"title":        "stream " + videoID,
		"published_at": "2024-05-01T12:00:00Z",
	})
	if err := video.SetInfo(storage.HolodexJSON, info); err != nil {
		t.Fatalf("SetInfo: %v", err)
	}
	if _, err := video.CreateSubtitleItem(storage.SubtitleMetadata{
		Source:       "youtube",
		Lang:         lang,
		SubtitleFile: "youtube." + lang + ".srt",
	}, srt); err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}
	return video
}

func TestSearchFindsMatchWithContext(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{Value: "world"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	result := results[0]
	if result.VideoID != "vid1" {
		t.Errorf("VideoID = %q", result.VideoID)
	}
	if result.VideoTitle != "stream vid1" {
		t.Errorf("VideoTitle = %q", result.VideoTitle)
	}
	if result.PublishedAt != "2024-05-01" {
		t.Errorf("PublishedAt = %q", result.PublishedAt)
	}
	if want := []string{"en"}; len(result.Langs) != 1 || result.Langs[0] != want[0] {
		t.Errorf("Langs = %v, want %v", result.Langs, want)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(result.Matches))
	}

	match := result.Matches[0]
	if match.Timestamp != 1 {
		t.Errorf("Timestamp = %d, want 1", match.Timestamp)
	}
	if match.YoutubeURL != "https://www.youtube.com/watch?v=vid1&t=1" {
		t.Errorf("YoutubeURL = %q", match.YoutubeURL)
	}

	// "nothing here" at 5s is inside the 15s future window, the 30s line is
	// not.
	if len(match.Lines) != 2 {
		t.Fatalf("lines = %d, want 2: %+v", len(match.Lines), match.Lines)
	}
	if !match.Lines[0].Matched || match.Lines[0].Text != "hello world" {
		t.Errorf("line 0 = %+v", match.Lines[0])
	}
	if match.Lines[1].Matched || match.Lines[1].Text != "nothing here" {
		t.Errorf("line 1 = %+v", match.Lines[1])
	}
}

func TestSearchNegativeContextDisablesExpansion(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{
		Value:      "world",
		TimeBefore: -1,
		TimeAfter:  -1,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || len(results[0].Matches) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	lines := results[0].Matches[0].Lines
	if len(lines) != 1 || lines[0].Text != "hello world" {
		t.Errorf("lines = %+v, want only the matched line", lines)
	}
}

func TestSearchMultipleMatchesInOneItem(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{Value: "hello", TimeBefore: -1, TimeAfter: -1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if len(results[0].Matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(results[0].Matches))
	}
	if results[0].Matches[1].Timestamp != 40 {
		t.Errorf("second match timestamp = %d, want 40", results[0].Matches[1].Timestamp)
	}
}

func TestSearchRegex(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{Value: `h\w+o wor`, Regex: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
}

func TestSearchSubtitleFilter(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)
	seedVideo(t, store, "vid2", "de", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{
		Value:           "world",
		SubtitleFilters: []string{"lang:eq:de"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].VideoID != "vid2" {
		t.Fatalf("results = %+v, want only vid2", results)
	}
}

func TestSearchVideoFilter(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)
	seedVideo(t, store, "vid2", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{
		Value:        "world",
		VideoFilters: []string{"id:eq:vid1"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].VideoID != "vid1" {
		t.Fatalf("results = %+v, want only vid1", results)
	}
}

func TestSearchBadFilterClause(t *testing.T) {
	store := newTestStore(t)

	svc := NewService(store, nil)
	if _, err := svc.Search(context.Background(), Params{
		Value:        "world",
		VideoFilters: []string{"no-colons"},
	}); err == nil {
		t.Fatal("expected malformed filter error")
	}
}

func TestSearchNoMatches(t *testing.T) {
	store := newTestStore(t)
	seedVideo(t, store, "vid1", "en", testSRT)

	svc := NewService(store, nil)
	results, err := svc.Search(context.Background(), Params{Value: "absent"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %+v, want none", results)
	}
}
