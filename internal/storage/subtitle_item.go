package storage

import (
	"encoding/json"
	"path/filepath"
	"strings"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/domain/entities"
	"github.com/johnquangdev/holo-archive/internal/subtitle"
)

// MultiLang is the lang value of subtitles that mix multiple languages in one
// file.
const MultiLang = "multi"

// SubtitleMetadata is the typed metadata document of a subtitle content item.
type SubtitleMetadata struct {
	ItemType     string   `json:"item_type"`
	Source       string   `json:"source"`
	Lang         string   `json:"lang"`
	Langs        []string `json:"langs"`
	SubtitleFile string   `json:"subtitle_file"`
	Flags        []string `json:"flags"`

	// Set on machine transcriptions only.
	AudioID       string `json:"audio_id,omitempty"`
	DiarizationID string `json:"diarization_id,omitempty"`
	WhisperModel  string `json:"whisper_model,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m SubtitleMetadata) MarshalJSON() ([]byte, error) {
	type plain SubtitleMetadata
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *SubtitleMetadata) UnmarshalJSON(data []byte) error {
	type plain SubtitleMetadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraKeys(data,
		"item_type", "source", "lang", "langs", "subtitle_file", "flags",
		"audio_id", "diarization_id", "whisper_model")
	if err != nil {
		return err
	}
	*m = SubtitleMetadata(p)
	m.Extra = extra
	return nil
}

// SubtitleItem stores one subtitle file, either fetched from YouTube or
// produced by the transcription pipeline.
type SubtitleItem struct {
	Item
}

func (s *SubtitleItem) Metadata() (SubtitleMetadata, error) {
	var meta SubtitleMetadata
	_, err := s.files.loadJSON(MetadataJSON, &meta)
	return meta, err
}

// Lang is the main language of the file. Can be MultiLang.
func (s *SubtitleItem) Lang() string {
	meta, err := s.Metadata()
	if err != nil {
		return ""
	}
	return meta.Lang
}

// Langs is every language contained in the file.
func (s *SubtitleItem) Langs() []string {
	meta, err := s.Metadata()
	if err != nil {
		return nil
	}
	return meta.Langs
}

func (s *SubtitleItem) SubtitleFile() string {
	meta, err := s.Metadata()
	if err != nil {
		return ""
	}
	return meta.SubtitleFile
}

func (s *SubtitleItem) SubtitlePath() string {
	return filepath.Join(s.Path(), s.SubtitleFile())
}

func (s *SubtitleItem) AudioID() string {
	meta, err := s.Metadata()
	if err != nil {
		return ""
	}
	return meta.AudioID
}

func (s *SubtitleItem) DiarizationID() string {
	meta, err := s.Metadata()
	if err != nil {
		return ""
	}
	return meta.DiarizationID
}

func (s *SubtitleItem) WhisperModel() string {
	meta, err := s.Metadata()
	if err != nil {
		return ""
	}
	return meta.WhisperModel
}

// LoadTranscription parses the stored subtitle file. SRT files become a
// transcription in the item's main language, JSON files are the pipeline's
// native format.
func (s *SubtitleItem) LoadTranscription() (*entities.Transcription, error) {
	content, ok, err := s.files.loadText(s.SubtitleFile())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotFound("subtitle file " + s.SubtitleFile())
	}

	switch {
	case strings.HasSuffix(s.SubtitleFile(), ".srt"):
		segments, err := subtitle.ParseSRT(content, s.Lang())
		if err != nil {
			return nil, err
		}
		return &entities.Transcription{Source: s.Source(), Segments: segments}, nil
	case strings.HasSuffix(s.SubtitleFile(), ".json"):
		var t entities.Transcription
		if err := json.Unmarshal([]byte(content), &t); err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, apperrors.ErrInvalidArgument("subtitle file format not supported: " + s.SubtitleFile())
}

// CreateSubtitleItem stores a subtitle file as a new content-addressed item.
// The ID is derived from the item type, source, checksum of the content and
// file name, so re-fetching identical subtitles is a no-op.
func (v *VideoRecord) CreateSubtitleItem(meta SubtitleMetadata, content string) (*SubtitleItem, error) {
	checksum, err := BuildChecksum(content)
	if err != nil {
		return nil, err
	}
	id, err := BuildContentID(ItemTypeSubtitle, meta.Source, checksum, meta.SubtitleFile)
	if err != nil {
		return nil, err
	}

	item := &SubtitleItem{Item: newItem(v.ContentPath(), id)}
	if item.Exists() {
		return item, nil
	}

	meta.ItemType = ItemTypeSubtitle
	if meta.Langs == nil {
		meta.Langs = []string{meta.Lang}
	}
	meta.Flags = normalizeFlags(meta.Flags)
	if err := item.create(meta); err != nil {
		return nil, err
	}
	if err := item.files.saveText(meta.SubtitleFile, content); err != nil {
		return nil, err
	}
	return item, nil
}

// SubtitleSchema is the filterable-attribute table of subtitle items.
var SubtitleSchema = &Schema[*SubtitleItem]{
	TypeName: "subtitle",
	Fields: map[string]Field[*SubtitleItem]{
		"id":            {Kind: KindString, String: func(s *SubtitleItem) string { return s.ID() }},
		"item_type":     {Kind: KindString, String: func(s *SubtitleItem) string { return s.ItemType() }},
		"source":        {Kind: KindString, String: func(s *SubtitleItem) string { return s.Source() }},
		"lang":          {Kind: KindString, String: func(s *SubtitleItem) string { return s.Lang() }},
		"langs":         {Kind: KindStringSet, Strings: func(s *SubtitleItem) []string { return s.Langs() }},
		"whisper_model": {Kind: KindString, String: func(s *SubtitleItem) string { return s.WhisperModel() }},
		"flags":         {Kind: KindStringSet, Strings: func(s *SubtitleItem) []string { return s.Flags() }},
	},
}
