package storage

import (
	"encoding/json"

	"github.com/johnquangdev/holo-archive/internal/domain/entities"
)

// DiarizationJSON is the payload file of a diarization item.
const DiarizationJSON = "diarization.json"

// DiarizationMetadata is the typed metadata document of a diarization item.
type DiarizationMetadata struct {
	ItemType string   `json:"item_type"`
	Source   string   `json:"source"`
	AudioID  string   `json:"audio_id,omitempty"`
	Flags    []string `json:"flags"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m DiarizationMetadata) MarshalJSON() ([]byte, error) {
	type plain DiarizationMetadata
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *DiarizationMetadata) UnmarshalJSON(data []byte) error {
	type plain DiarizationMetadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraKeys(data, "item_type", "source", "audio_id", "flags")
	if err != nil {
		return err
	}
	*m = DiarizationMetadata(p)
	m.Extra = extra
	return nil
}

// DiarizationItem stores the speaker diarization produced for an audio item.
type DiarizationItem struct {
	Item
}

func (d *DiarizationItem) Metadata() (DiarizationMetadata, error) {
	var meta DiarizationMetadata
	_, err := d.files.loadJSON(MetadataJSON, &meta)
	return meta, err
}

func (d *DiarizationItem) AudioID() string {
	meta, err := d.Metadata()
	if err != nil {
		return ""
	}
	return meta.AudioID
}

// Diarization loads the payload. Returns (nil, nil) when it was never saved.
func (d *DiarizationItem) Diarization() (*entities.Diarization, error) {
	var value entities.Diarization
	ok, err := d.files.loadJSON(DiarizationJSON, &value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (d *DiarizationItem) SetDiarization(value *entities.Diarization) error {
	return d.files.saveJSON(DiarizationJSON, value)
}

func (d *DiarizationItem) Checkpoint() string {
	value, err := d.Diarization()
	if err != nil || value == nil {
		return ""
	}
	return value.Checkpoint
}

// CreateDiarizationItem stores a diarization result as a new
// content-addressed item. The ID is derived from the item type, source and
// the audio item the diarization was computed from.
func (v *VideoRecord) CreateDiarizationItem(source, audioID string, value *entities.Diarization) (*DiarizationItem, error) {
	id, err := BuildContentID(ItemTypeDiarization, source, audioID)
	if err != nil {
		return nil, err
	}

	item := &DiarizationItem{Item: newItem(v.ContentPath(), id)}
	if item.Exists() {
		return item, nil
	}

	meta := DiarizationMetadata{
		ItemType: ItemTypeDiarization,
		Source:   source,
		AudioID:  audioID,
		Flags:    []string{},
	}
	if err := item.create(meta); err != nil {
		return nil, err
	}
	if value != nil {
		if err := item.SetDiarization(value); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// DiarizationSchema is the filterable-attribute table of diarization items.
var DiarizationSchema = &Schema[*DiarizationItem]{
	TypeName: "diarization",
	Fields: map[string]Field[*DiarizationItem]{
		"id":        {Kind: KindString, String: func(d *DiarizationItem) string { return d.ID() }},
		"item_type": {Kind: KindString, String: func(d *DiarizationItem) string { return d.ItemType() }},
		"source":    {Kind: KindString, String: func(d *DiarizationItem) string { return d.Source() }},
		"audio_id":  {Kind: KindString, String: func(d *DiarizationItem) string { return d.AudioID() }},
		"checkpoint": {Kind: KindString, String: func(d *DiarizationItem) string {
			return d.Checkpoint()
		}},
		"flags": {Kind: KindStringSet, Strings: func(d *DiarizationItem) []string { return d.Flags() }},
	},
}
