package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestOpenInitializesFreshStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	version, err := store.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != CurrentVersion {
		t.Errorf("version = %q, want %q", version, CurrentVersion)
	}
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, MetadataJSON), map[string]string{"version": "9.9.9"})

	_, err := Open(dir, nil)
	if !apperrors.HasCode(err, apperrors.ErrorCode_VERSION_MISMATCH) {
		t.Fatalf("err = %v, want version mismatch", err)
	}
}

func TestOpenRejectsBrokenMetadata(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MetadataJSON), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir, nil); err == nil {
		t.Fatal("expected metadata error")
	}
}

func TestOpenRequiresMetadataInExistingDir(t *testing.T) {
	// A pre-existing directory is an archive to open, never one to initialize.
	if _, err := Open(t.TempDir(), nil); err == nil {
		t.Fatal("expected metadata error for an empty existing directory")
	}
}

func TestRecordLifecycle(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "archive"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if ch, err := store.GetChannel("ch1"); err != nil || ch != nil {
		t.Fatalf("missing channel = %v, %v; want nil, nil", ch, err)
	}

	channel, err := store.CreateChannel("ch1", ChannelMetadata{Flags: []string{FlagMentionsOnly}})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if !channel.Exists() {
		t.Error("created channel does not exist")
	}
	if !channel.HasFlag(FlagMentionsOnly) {
		t.Error("flag lost on create")
	}

	if _, err := store.CreateChannel("ch1", ChannelMetadata{}); !apperrors.HasCode(err, apperrors.ErrorCode_ALREADY_EXISTS) {
		t.Errorf("duplicate create err = %v", err)
	}

	if _, err := store.CreateVideo("vid1", VideoMetadata{}); err == nil {
		t.Error("video create without channel_id should fail")
	}
	video, err := store.CreateVideo("vid1", VideoMetadata{ChannelID: "ch1"})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if got := video.ChannelID(); got != "ch1" {
		t.Errorf("ChannelID = %q", got)
	}

	parent, err := video.Channel()
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if parent == nil || parent.ID() != "ch1" {
		t.Errorf("parent = %v", parent)
	}

	videos, err := channel.ListVideos(nil)
	if err != nil || len(videos) != 1 {
		t.Fatalf("ListVideos = %v, %v", videos, err)
	}
	videos, err = channel.ListVideos(func(v *VideoRecord) bool { return v.ID() != "vid1" })
	if err != nil || len(videos) != 0 {
		t.Fatalf("filtered ListVideos = %v, %v", videos, err)
	}
}

func TestRecordIdentityCache(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "archive"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.CreateChannel("ch1", ChannelMetadata{}); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if _, err := store.CreateVideo("vid1", VideoMetadata{ChannelID: "ch1"}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	a, err := store.GetVideo("vid1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	b, err := store.GetVideo("vid1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if a != b {
		t.Error("repeated lookups should return the identical record")
	}
}

func TestExistsRequiresParsableMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// A directory without readable metadata is not a record.
	broken := filepath.Join(dir, "video", "ghost")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, MetadataJSON), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if v, err := store.GetVideo("ghost"); err != nil || v != nil {
		t.Errorf("GetVideo(ghost) = %v, %v; want nil, nil", v, err)
	}
	videos, err := store.ListVideos(nil)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("videos = %v, want none", videos)
	}
}

func TestMigrationChainFromOldestVersion(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, MetadataJSON), map[string]string{"version": "0.1.0"})

	writeJSON(t, filepath.Join(dir, "channel", "ch1", MetadataJSON), map[string]any{
		"refresh_holodex_info": false,
		"refresh_videos":       true,
	})

	videoDir := filepath.Join(dir, "video", "vid1")
	writeJSON(t, filepath.Join(videoDir, MetadataJSON), map[string]any{
		"channel_id":     "ch1",
		"members_only":   true,
		"skip_subtitles": []string{"en", "all"},
	})
	srt := "1\n00:00:01,000 --> 00:00:02,000\nhello\n"
	if err := os.MkdirAll(filepath.Join(videoDir, "subtitles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(videoDir, "subtitles", "youtube.en.srt"), []byte(srt), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(videoDir, ".gitignore"), []byte("/subtitles\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	diaDir := filepath.Join(videoDir, "content", "old-diarization")
	writeJSON(t, filepath.Join(diaDir, MetadataJSON), map[string]any{
		"item_type": "diarization",
		"source":    "pyannote",
		"audio_id":  "gone",
	})
	writeJSON(t, filepath.Join(diaDir, DiarizationJSON), map[string]any{
		"diarization_model": "pyannote/speaker-diarization-3.1",
		"diarization": []map[string]any{
			{"start": 0.0, "end": 1.5, "speaker": "SPEAKER_00"},
		},
	})

	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	version, _ := store.Version()
	if version != CurrentVersion {
		t.Fatalf("version = %q, want %q", version, CurrentVersion)
	}

	doc, err := store.metadataDoc()
	if err != nil {
		t.Fatalf("metadataDoc: %v", err)
	}
	if rawString(doc, "git_privacy") != "public" {
		t.Error("git_privacy not recorded")
	}

	channel, err := store.GetChannel("ch1")
	if err != nil || channel == nil {
		t.Fatalf("channel = %v, %v", channel, err)
	}
	if !channel.HasFlag(FlagHolodexPreserve) {
		t.Error("refresh_holodex_info=false should become the preserve flag")
	}
	if channel.HasFlag(FlagMentionsOnly) {
		t.Error("refresh_videos=true should not set mentions-only")
	}

	video, err := store.GetVideo("vid1")
	if err != nil || video == nil {
		t.Fatalf("video = %v, %v", video, err)
	}
	if !video.HasFlag(FlagYoutubeMembership) {
		t.Error("members_only should become the membership flag")
	}
	states := video.YoutubeSubtitles()
	if states["en"] != SubtitlesMissing {
		t.Errorf("youtube_subtitles = %v", states)
	}
	if _, ok := states["all"]; ok {
		t.Error(`"all" should not appear in the language map`)
	}

	// The loose subtitle file became a content-addressed item.
	subtitles, err := video.ListSubtitles(nil)
	if err != nil || len(subtitles) != 1 {
		t.Fatalf("subtitles = %v, %v", subtitles, err)
	}
	item := subtitles[0]
	checksum, _ := BuildChecksum([]byte(srt))
	wantID, _ := BuildContentID("subtitle", "youtube", checksum, "youtube.en.srt")
	if item.ID() != wantID {
		t.Errorf("item ID = %q, want %q", item.ID(), wantID)
	}
	if langs := item.Langs(); len(langs) != 1 || langs[0] != "en" {
		t.Errorf("langs = %v", langs)
	}
	if _, err := os.Stat(filepath.Join(videoDir, "subtitles")); !os.IsNotExist(err) {
		t.Error("old subtitles directory should be gone")
	}

	gitignore, err := os.ReadFile(filepath.Join(videoDir, ".gitignore"))
	if err != nil || string(gitignore) != "/content\n" {
		t.Errorf("gitignore = %q, %v", gitignore, err)
	}

	// The diarization payload was reshaped with the pyannote-3.1 defaults.
	diarizations, err := video.ListDiarizations(nil)
	if err != nil || len(diarizations) != 1 {
		t.Fatalf("diarizations = %v, %v", diarizations, err)
	}
	dia, err := diarizations[0].Diarization()
	if err != nil {
		t.Fatalf("Diarization: %v", err)
	}
	if dia.Checkpoint != "pyannote/speaker-diarization-3.1" {
		t.Errorf("Checkpoint = %q", dia.Checkpoint)
	}
	if dia.SegmentationModel != "pyannote/segmentation-3.0" {
		t.Errorf("SegmentationModel = %q", dia.SegmentationModel)
	}
	if dia.Clustering != "AgglomerativeClustering" {
		t.Errorf("Clustering = %q", dia.Clustering)
	}
	if len(dia.Segments) != 1 || dia.Segments[0].End != 1.5 {
		t.Errorf("Segments = %+v", dia.Segments)
	}

	// Reopening a migrated store is a no-op.
	if _, err := Open(dir, nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}
