package storage

import (
	"strings"
	"testing"
)

func TestBuildChecksumDeterministic(t *testing.T) {
	a, err := BuildChecksum("youtube", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("BuildChecksum: %v", err)
	}
	b, err := BuildChecksum("youtube", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("BuildChecksum: %v", err)
	}
	if a != b {
		t.Errorf("checksums differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}

func TestBuildChecksumPartBoundaries(t *testing.T) {
	a, _ := BuildChecksum("ab", "c")
	b, _ := BuildChecksum("a", "bc")
	if a == b {
		t.Error("part boundaries should change the digest")
	}
}

func TestBuildChecksumStructuredParts(t *testing.T) {
	a, err := BuildChecksum(map[string]int{"x": 1, "y": 2})
	if err != nil {
		t.Fatalf("BuildChecksum: %v", err)
	}
	b, _ := BuildChecksum(map[string]int{"y": 2, "x": 1})
	if a != b {
		t.Error("map key order should not change the digest")
	}
}

func TestBuildChecksumNoParts(t *testing.T) {
	if _, err := BuildChecksum(); err == nil {
		t.Error("expected error for zero parts")
	}
}

func TestBuildContentID(t *testing.T) {
	id, err := BuildContentID("subtitle", "youtube", "abc123", "youtube.en.srt")
	if err != nil {
		t.Fatalf("BuildContentID: %v", err)
	}
	if id != "subtitle_youtube_abc123_youtube-en-srt" {
		t.Errorf("id = %q", id)
	}
}

func TestBuildContentIDSanitizesRuns(t *testing.T) {
	id, err := BuildContentID("audio", "a/b  c!!d")
	if err != nil {
		t.Fatalf("BuildContentID: %v", err)
	}
	if strings.Contains(id, "/") || strings.Contains(id, " ") {
		t.Errorf("id not sanitized: %q", id)
	}
	if id != "audio_a-b-c-d" {
		t.Errorf("id = %q", id)
	}
}

func TestBuildContentIDNoParts(t *testing.T) {
	if _, err := BuildContentID("audio"); err == nil {
		t.Error("expected error for zero parts")
	}
}
