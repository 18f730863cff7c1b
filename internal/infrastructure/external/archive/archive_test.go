package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnquangdev/holo-archive/pkg/config"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want FileType
	}{
		{"abc123.info.json", FileInfo},
		{"abc123.live_chat.json", FileChat},
		{"transcription.en.srt", FileSubtitle},
		{"abc123.webp", FileThumbnail},
		{"abc123.webm", FileVideo},
		{"abc123.f251.m4a", FileAudioOnly},
		{"abc123.f303.webm", FileVideoOnly},
		{"notes.txt", FileUnsupported},
	}
	for _, tc := range cases {
		if got := Classify("abc123", tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPickAudio(t *testing.T) {
	files := []File{
		{Type: FileVideo, Name: "abc.webm"},
		{Type: FileAudioOnly, Name: "abc.f251.m4a"},
	}
	picked, ok := PickAudio(files)
	if !ok || picked.Type != FileAudioOnly {
		t.Fatalf("picked %+v, want the dedicated audio stream", picked)
	}

	// muxed video is the fallback
	picked, ok = PickAudio(files[:1])
	if !ok || picked.Type != FileVideo {
		t.Fatalf("picked %+v, want the muxed video", picked)
	}

	if _, ok := PickAudio(nil); ok {
		t.Fatal("expected no audio source")
	}
}

func TestRubyRubyListFiles(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vid-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "vid-1.f251.webm", "file": map[string]any{"mimeType": "audio/webm", "size": 123}},
			{"name": "vid-1.info", "file": map[string]any{"mimeType": "application/octet-stream", "size": 45}},
		})
	}))
	defer ts.Close()

	mirror := NewRubyRubyMirror(&config.RubyRubyConfig{BaseURL: ts.URL}, nil)
	files, err := mirror.ListFiles(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Type != FileAudioOnly {
		t.Errorf("mime classification failed: %+v", files[0])
	}
	if files[1].Type != FileInfo {
		t.Errorf("name classification failed: %+v", files[1])
	}
}

func TestRubyRubyDownloadNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	mirror := NewRubyRubyMirror(&config.RubyRubyConfig{BaseURL: ts.URL}, nil)
	if _, err := mirror.Download(context.Background(), "vid-1", "missing.webm"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
