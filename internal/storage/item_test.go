package storage

import (
	"os"
	"testing"

	"github.com/johnquangdev/holo-archive/internal/domain/entities"
)

func TestCreateAudioItemIsIdempotent(t *testing.T) {
	video := testVideo(t)

	a, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("opus-bytes"))
	if err != nil {
		t.Fatalf("CreateAudioItem: %v", err)
	}
	b, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("opus-bytes"))
	if err != nil {
		t.Fatalf("second CreateAudioItem: %v", err)
	}
	if a.ID() != b.ID() {
		t.Errorf("IDs differ: %q vs %q", a.ID(), b.ID())
	}

	raw, err := os.ReadFile(a.AudioPath())
	if err != nil || string(raw) != "opus-bytes" {
		t.Errorf("audio file = %q, %v", raw, err)
	}

	// Different bytes are a different item.
	c, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("other-bytes"))
	if err != nil {
		t.Fatalf("CreateAudioItem: %v", err)
	}
	if c.ID() == a.ID() {
		t.Error("different content should produce a different ID")
	}
}

func TestGetContentDispatchesOnItemType(t *testing.T) {
	video := testVideo(t)

	audio, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("opus"))
	if err != nil {
		t.Fatalf("CreateAudioItem: %v", err)
	}
	subtitleItem, err := video.CreateSubtitleItem(SubtitleMetadata{
		Source:       "youtube",
		Lang:         "en",
		SubtitleFile: "youtube.en.srt",
	}, "1\n00:00:01,000 --> 00:00:02,000\nhi\n")
	if err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}
	diarization, err := video.CreateDiarizationItem("pyannote", audio.ID(), &entities.Diarization{
		Checkpoint: "pyannote/speaker-diarization-3.1",
	})
	if err != nil {
		t.Fatalf("CreateDiarizationItem: %v", err)
	}

	for _, tc := range []struct {
		id   string
		want string
	}{
		{audio.ID(), ItemTypeAudio},
		{subtitleItem.ID(), ItemTypeSubtitle},
		{diarization.ID(), ItemTypeDiarization},
	} {
		item, err := video.GetContent(tc.id)
		if err != nil {
			t.Fatalf("GetContent(%q): %v", tc.id, err)
		}
		if item == nil || item.ItemType() != tc.want {
			t.Errorf("GetContent(%q) = %v", tc.id, item)
		}
	}

	// Dangling references resolve to nil, not an error.
	missing, err := video.GetContent("audio_ragtag_deadbeef_gone")
	if err != nil || missing != nil {
		t.Errorf("missing item = %v, %v; want nil, nil", missing, err)
	}
}

func TestListContentByType(t *testing.T) {
	video := testVideo(t)
	audio, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("opus"))
	if err != nil {
		t.Fatalf("CreateAudioItem: %v", err)
	}
	if _, err := video.CreateSubtitleItem(SubtitleMetadata{
		Source: "youtube", Lang: "en", SubtitleFile: "youtube.en.srt",
	}, "1\n00:00:01,000 --> 00:00:02,000\nhi\n"); err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}
	if _, err := video.CreateDiarizationItem("pyannote", audio.ID(), nil); err != nil {
		t.Fatalf("CreateDiarizationItem: %v", err)
	}

	all, err := video.ListContent(nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListContent = %v, %v", all, err)
	}
	audios, err := video.ListAudio(nil)
	if err != nil || len(audios) != 1 {
		t.Fatalf("ListAudio = %v, %v", audios, err)
	}
	subtitles, err := video.ListSubtitles(func(s *SubtitleItem) bool { return s.Lang() == "en" })
	if err != nil || len(subtitles) != 1 {
		t.Fatalf("ListSubtitles = %v, %v", subtitles, err)
	}
	none, err := video.ListSubtitles(func(s *SubtitleItem) bool { return s.Lang() == "de" })
	if err != nil || len(none) != 0 {
		t.Fatalf("filtered ListSubtitles = %v, %v", none, err)
	}
}

func TestSubtitleLangs(t *testing.T) {
	video := testVideo(t)
	if _, err := video.CreateSubtitleItem(SubtitleMetadata{
		Source: "youtube", Lang: "en", SubtitleFile: "youtube.en.srt",
	}, "1\n00:00:01,000 --> 00:00:02,000\nhi\n"); err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}
	if _, err := video.CreateSubtitleItem(SubtitleMetadata{
		Source: "youtube", Lang: "jp", SubtitleFile: "youtube.jp.srt",
	}, "1\n00:00:01,000 --> 00:00:02,000\nkon\n"); err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}

	langs, err := video.SubtitleLangs()
	if err != nil {
		t.Fatalf("SubtitleLangs: %v", err)
	}
	if len(langs) != 2 {
		t.Errorf("langs = %v", langs)
	}
}

func TestSubtitleItemLoadTranscriptionSRT(t *testing.T) {
	video := testVideo(t)
	item, err := video.CreateSubtitleItem(SubtitleMetadata{
		Source: "youtube", Lang: "en", SubtitleFile: "youtube.en.srt",
	}, "1\n00:00:01,500 --> 00:00:02,000\nhello there\n")
	if err != nil {
		t.Fatalf("CreateSubtitleItem: %v", err)
	}

	tx, err := item.LoadTranscription()
	if err != nil {
		t.Fatalf("LoadTranscription: %v", err)
	}
	if tx.Source != "youtube" {
		t.Errorf("Source = %q", tx.Source)
	}
	if len(tx.Segments) != 1 || tx.Segments[0].Start != 1.5 || tx.Segments[0].Lang != "en" {
		t.Errorf("Segments = %+v", tx.Segments)
	}
}

func TestDiarizationItemRoundTrip(t *testing.T) {
	video := testVideo(t)
	audio, err := video.CreateAudioItem("ragtag", "audio.webm", []byte("opus"))
	if err != nil {
		t.Fatalf("CreateAudioItem: %v", err)
	}

	value := &entities.Diarization{
		Checkpoint: "pyannote/speaker-diarization-3.1",
		Segments: []entities.DiarizationSegment{
			{Start: 0, End: 2.5, Speaker: "SPEAKER_00"},
		},
	}
	item, err := video.CreateDiarizationItem("pyannote", audio.ID(), value)
	if err != nil {
		t.Fatalf("CreateDiarizationItem: %v", err)
	}
	if item.AudioID() != audio.ID() {
		t.Errorf("AudioID = %q", item.AudioID())
	}

	got, err := item.Diarization()
	if err != nil {
		t.Fatalf("Diarization: %v", err)
	}
	if got.Checkpoint != value.Checkpoint || len(got.Segments) != 1 {
		t.Errorf("round trip = %+v", got)
	}
	if item.Checkpoint() != value.Checkpoint {
		t.Errorf("Checkpoint = %q", item.Checkpoint())
	}
}
