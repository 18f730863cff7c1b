package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// SubtitlesState marks why a YouTube subtitle language is not fetched again.
type SubtitlesState string

const (
	SubtitlesMissing SubtitlesState = "missing"
	SubtitlesGarbage SubtitlesState = "garbage"
)

// VideoMetadata is the typed form of a video's metadata document.
type VideoMetadata struct {
	ChannelID        string                    `json:"channel_id"`
	Flags            []string                  `json:"flags"`
	YoutubeSubtitles map[string]SubtitlesState `json:"youtube_subtitles,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m VideoMetadata) MarshalJSON() ([]byte, error) {
	type plain VideoMetadata
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *VideoMetadata) UnmarshalJSON(data []byte) error {
	type plain VideoMetadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraKeys(data, "channel_id", "flags", "youtube_subtitles")
	if err != nil {
		return err
	}
	*m = VideoMetadata(p)
	m.Extra = extra
	return nil
}

// VideoRecord represents a single livestream or upload belonging to a channel.
type VideoRecord struct {
	Record
}

const videoModelName = "video"

func newVideoRecord(store *Store, id string) *VideoRecord {
	return &VideoRecord{Record: newRecord(store, videoModelName, id)}
}

// Create initializes the video directory and metadata. The channel_id is
// mandatory, a video without an owner is not representable.
func (v *VideoRecord) Create(meta VideoMetadata) error {
	if meta.ChannelID == "" {
		return apperrors.ErrInvalidArgument("channel_id is required")
	}
	if meta.Flags == nil {
		meta.Flags = []string{}
	}
	return v.create(meta)
}

// Metadata returns the parsed metadata document.
func (v *VideoRecord) Metadata() (VideoMetadata, error) {
	var meta VideoMetadata
	_, err := v.files.loadJSON(MetadataJSON, &meta)
	return meta, err
}

func (v *VideoRecord) ChannelID() string {
	meta, err := v.Metadata()
	if err != nil {
		return ""
	}
	return meta.ChannelID
}

func (v *VideoRecord) Channel() (*ChannelRecord, error) {
	id := v.ChannelID()
	if id == "" {
		return nil, nil
	}
	return v.store.GetChannel(id)
}

// YoutubeSubtitles returns the recorded per-language subtitle states.
func (v *VideoRecord) YoutubeSubtitles() map[string]SubtitlesState {
	meta, err := v.Metadata()
	if err != nil || meta.YoutubeSubtitles == nil {
		return map[string]SubtitlesState{}
	}
	return meta.YoutubeSubtitles
}

// MarkYoutubeSubtitles merges states into the youtube_subtitles map.
func (v *VideoRecord) MarkYoutubeSubtitles(states map[string]SubtitlesState) error {
	meta, err := v.Metadata()
	if err != nil {
		return err
	}
	if meta.YoutubeSubtitles == nil {
		meta.YoutubeSubtitles = map[string]SubtitlesState{}
	}
	for lang, state := range states {
		meta.YoutubeSubtitles[lang] = state
	}
	return v.files.saveJSON(MetadataJSON, meta)
}

var publishedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102",
}

func parsePublishedAt(raw string) (time.Time, bool) {
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// PublishedAt resolves the publication time from the source-info documents,
// preferring Holodex timestamps over YouTube ones. Timestamps without an
// offset are taken as UTC. The zero time means unknown.
func (v *VideoRecord) PublishedAt() time.Time {
	for _, probe := range []struct{ file, key string }{
		{HolodexJSON, "published_at"},
		{HolodexJSON, "available_at"},
		{YoutubeJSON, "upload_date"},
		{YoutubeJSON, "release_date"},
	} {
		if raw := v.infoString(probe.file, probe.key); raw != "" {
			if t, ok := parsePublishedAt(raw); ok {
				return t
			}
		}
	}
	return time.Time{}
}

func (v *VideoRecord) Title() string {
	if title := v.infoString(HolodexJSON, "title"); title != "" {
		return title
	}
	return v.infoString(YoutubeJSON, "title")
}

func (v *VideoRecord) YoutubeURL() string {
	if id := v.YoutubeID(); id != "" {
		return "https://www.youtube.com/watch?v=" + id
	}
	return ""
}

func (v *VideoRecord) HolodexURL() string {
	if id := v.HolodexID(); id != "" {
		return "https://holodex.net/watch/" + id
	}
	return ""
}

// UpdateGitignore keeps members-only content out of version control. The
// marker file is created when the membership flag is set and removed when the
// flag is cleared.
func (v *VideoRecord) UpdateGitignore() error {
	gitignorePath := filepath.Join(v.Path(), ".gitignore")
	member := v.HasFlag(FlagYoutubeMembership)

	_, err := os.Stat(gitignorePath)
	switch {
	case member && os.IsNotExist(err):
		return os.WriteFile(gitignorePath, []byte("/content\n"), 0o644)
	case !member && err == nil:
		return os.Remove(gitignorePath)
	case err != nil && !os.IsNotExist(err):
		return err
	}
	return nil
}

// SkipMissingSubtitles marks languages as missing for videos older than the
// given age so later fetch runs do not retry them forever. Videos with an
// unknown publication time count as old.
func (v *VideoRecord) SkipMissingSubtitles(langs []string, age time.Duration) (map[string]SubtitlesState, error) {
	publishedAt := v.PublishedAt()
	if !publishedAt.IsZero() && publishedAt.After(time.Now().UTC().Add(-age)) {
		return nil, nil
	}

	items, err := v.ListSubtitles(func(s *SubtitleItem) bool { return s.Source() == "youtube" })
	if err != nil {
		return nil, err
	}
	stored := map[string]bool{}
	for _, item := range items {
		for _, lang := range item.Langs() {
			stored[lang] = true
		}
	}

	missing := map[string]SubtitlesState{}
	for _, lang := range langs {
		if !stored[lang] {
			missing[lang] = SubtitlesMissing
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	if err := v.MarkYoutubeSubtitles(missing); err != nil {
		return nil, err
	}
	return missing, nil
}

// VideoSchema is the statically declared filterable-attribute table of video
// records.
var VideoSchema = &Schema[*VideoRecord]{
	TypeName: "video",
	Fields: map[string]Field[*VideoRecord]{
		"id":         {Kind: KindString, String: func(v *VideoRecord) string { return v.ID() }},
		"title":      {Kind: KindString, String: func(v *VideoRecord) string { return v.Title() }},
		"channel_id": {Kind: KindString, String: func(v *VideoRecord) string { return v.ChannelID() }},
		"youtube_id": {Kind: KindString, String: func(v *VideoRecord) string { return v.YoutubeID() }},
		"holodex_id": {Kind: KindString, String: func(v *VideoRecord) string { return v.HolodexID() }},
		"published_at": {Kind: KindString, String: func(v *VideoRecord) string {
			if t := v.PublishedAt(); !t.IsZero() {
				return t.Format(time.RFC3339)
			}
			return ""
		}},
		"flags": {Kind: KindStringSet, Strings: func(v *VideoRecord) []string { return v.Flags() }},
	},
}
