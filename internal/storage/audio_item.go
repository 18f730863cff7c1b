package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// AudioMetadata is the typed metadata document of an audio content item.
type AudioMetadata struct {
	ItemType  string   `json:"item_type"`
	Source    string   `json:"source"`
	AudioFile string   `json:"audio_file"`
	Flags     []string `json:"flags"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m AudioMetadata) MarshalJSON() ([]byte, error) {
	type plain AudioMetadata
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *AudioMetadata) UnmarshalJSON(data []byte) error {
	type plain AudioMetadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraKeys(data, "item_type", "source", "audio_file", "flags")
	if err != nil {
		return err
	}
	*m = AudioMetadata(p)
	m.Extra = extra
	return nil
}

// AudioItem stores a downloaded or sliced audio file.
type AudioItem struct {
	Item
}

func (a *AudioItem) Metadata() (AudioMetadata, error) {
	var meta AudioMetadata
	_, err := a.files.loadJSON(MetadataJSON, &meta)
	return meta, err
}

// AudioFile is the name of the stored audio file.
func (a *AudioItem) AudioFile() string {
	meta, err := a.Metadata()
	if err != nil {
		return ""
	}
	return meta.AudioFile
}

func (a *AudioItem) AudioPath() string {
	return filepath.Join(a.Path(), a.AudioFile())
}

// AudioChecksum hashes the stored audio bytes.
func (a *AudioItem) AudioChecksum() (string, error) {
	raw, err := os.ReadFile(a.AudioPath())
	if err != nil {
		return "", err
	}
	return BuildChecksum(raw)
}

// CreateAudioItem stores audio bytes as a new content-addressed item and
// returns it. The item ID is derived from the item type, source, checksum of
// the bytes and file name.
func (v *VideoRecord) CreateAudioItem(source, audioFile string, raw []byte, flags ...string) (*AudioItem, error) {
	checksum, err := BuildChecksum(raw)
	if err != nil {
		return nil, err
	}
	id, err := BuildContentID(ItemTypeAudio, source, checksum, audioFile)
	if err != nil {
		return nil, err
	}

	item := &AudioItem{Item: newItem(v.ContentPath(), id)}
	if item.Exists() {
		return item, nil
	}

	meta := AudioMetadata{
		ItemType:  ItemTypeAudio,
		Source:    source,
		AudioFile: audioFile,
		Flags:     normalizeFlags(flags),
	}
	if err := item.create(meta); err != nil {
		return nil, err
	}
	if err := item.files.saveBytes(audioFile, raw); err != nil {
		return nil, err
	}
	return item, nil
}

// AudioSchema is the filterable-attribute table of audio items.
var AudioSchema = &Schema[*AudioItem]{
	TypeName: "audio",
	Fields: map[string]Field[*AudioItem]{
		"id":         {Kind: KindString, String: func(a *AudioItem) string { return a.ID() }},
		"item_type":  {Kind: KindString, String: func(a *AudioItem) string { return a.ItemType() }},
		"source":     {Kind: KindString, String: func(a *AudioItem) string { return a.Source() }},
		"audio_file": {Kind: KindString, String: func(a *AudioItem) string { return a.AudioFile() }},
		"flags":      {Kind: KindStringSet, Strings: func(a *AudioItem) []string { return a.Flags() }},
	},
}
