package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// Item type tags stored in each content item's metadata document.
const (
	ItemTypeAudio       = "audio"
	ItemTypeSubtitle    = "subtitle"
	ItemTypeDiarization = "diarization"
)

// ContentItem is any derived artifact stored under a video's content
// directory. Concrete types are AudioItem, SubtitleItem and DiarizationItem.
type ContentItem interface {
	ID() string
	ItemType() string
	Path() string
	Source() string
	Flags() []string
	HasFlag(flag string) bool
	Exists() bool
}

// Item is the directory-backed base of all content items.
type Item struct {
	id    string
	files *fileStore
}

func newItem(contentDir, id string) Item {
	return Item{id: id, files: newFileStore(filepath.Join(contentDir, id))}
}

func (i *Item) ID() string   { return i.id }
func (i *Item) Path() string { return i.files.dir }

// Exists reports whether the item directory is present and its metadata
// parses. Same existence contract as records.
func (i *Item) Exists() bool {
	info, err := os.Stat(i.files.dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(i.files.path(MetadataJSON)); err != nil {
		i.files.invalidate(MetadataJSON)
		return false
	}
	var doc map[string]json.RawMessage
	ok, err := i.files.loadJSON(MetadataJSON, &doc)
	return ok && err == nil
}

func (i *Item) create(metadata any) error {
	if i.Exists() {
		return apperrors.ErrAlreadyExists("content item " + i.id)
	}
	if err := os.MkdirAll(i.files.dir, 0o755); err != nil {
		return err
	}
	return i.files.saveJSON(MetadataJSON, metadata)
}

func (i *Item) metadataDoc() (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	ok, err := i.files.loadJSON(MetadataJSON, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]json.RawMessage{}, nil
	}
	return doc, nil
}

// ItemType returns the type tag from the metadata document.
func (i *Item) ItemType() string {
	doc, err := i.metadataDoc()
	if err != nil {
		return ""
	}
	var itemType string
	if raw, ok := doc["item_type"]; ok {
		_ = json.Unmarshal(raw, &itemType)
	}
	return itemType
}

// Source returns which pipeline stage or site produced the item.
func (i *Item) Source() string {
	doc, err := i.metadataDoc()
	if err != nil {
		return ""
	}
	var source string
	if raw, ok := doc["source"]; ok {
		_ = json.Unmarshal(raw, &source)
	}
	return source
}

func (i *Item) Flags() []string {
	return readFlags(i.files)
}

func (i *Item) HasFlag(flag string) bool {
	for _, f := range i.Flags() {
		if f == flag {
			return true
		}
	}
	return false
}

func (i *Item) AddFlags(flags ...string) error {
	doc, err := i.metadataDoc()
	if err != nil {
		return err
	}
	return saveFlags(i.files, doc, mergeFlags(readFlags(i.files), flags))
}

// ContentPath is the directory holding a video's content items.
func (v *VideoRecord) ContentPath() string {
	return filepath.Join(v.Path(), "content")
}

// GetContent resolves a content item by directory name, dispatching on the
// item_type tag in its metadata. Returns (nil, nil) when the item does not
// exist.
func (v *VideoRecord) GetContent(id string) (ContentItem, error) {
	base := newItem(v.ContentPath(), id)
	if !base.Exists() {
		return nil, nil
	}
	switch itemType := base.ItemType(); itemType {
	case ItemTypeAudio:
		return &AudioItem{Item: base}, nil
	case ItemTypeSubtitle:
		return &SubtitleItem{Item: base}, nil
	case ItemTypeDiarization:
		return &DiarizationItem{Item: base}, nil
	default:
		return nil, apperrors.ErrInvalidArgument("unexpected item type " + itemType)
	}
}

// ListContent returns the video's content items, optionally filtered.
func (v *VideoRecord) ListContent(pred func(ContentItem) bool) ([]ContentItem, error) {
	entries, err := os.ReadDir(v.ContentPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []ContentItem
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		item, err := v.GetContent(entry.Name())
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		if pred == nil || pred(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

// ListAudio returns the video's audio items, optionally filtered.
func (v *VideoRecord) ListAudio(pred func(*AudioItem) bool) ([]*AudioItem, error) {
	return listTyped(v, pred)
}

// ListSubtitles returns the video's subtitle items, optionally filtered.
func (v *VideoRecord) ListSubtitles(pred func(*SubtitleItem) bool) ([]*SubtitleItem, error) {
	return listTyped(v, pred)
}

// ListDiarizations returns the video's diarization items, optionally filtered.
func (v *VideoRecord) ListDiarizations(pred func(*DiarizationItem) bool) ([]*DiarizationItem, error) {
	return listTyped(v, pred)
}

func listTyped[T ContentItem](v *VideoRecord, pred func(T) bool) ([]T, error) {
	all, err := v.ListContent(nil)
	if err != nil {
		return nil, err
	}
	var items []T
	for _, item := range all {
		typed, ok := item.(T)
		if !ok {
			continue
		}
		if pred == nil || pred(typed) {
			items = append(items, typed)
		}
	}
	return items, nil
}

// SubtitleLangs returns the set of main languages across the video's
// subtitle items.
func (v *VideoRecord) SubtitleLangs() ([]string, error) {
	items, err := v.ListSubtitles(nil)
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, item := range items {
		langs = append(langs, item.Lang())
	}
	return normalizeFlags(langs), nil
}

// ContentSchema is the filterable-attribute table shared by all content item
// types.
var ContentSchema = &Schema[ContentItem]{
	TypeName: "content",
	Fields: map[string]Field[ContentItem]{
		"id":        {Kind: KindString, String: ContentItem.ID},
		"item_type": {Kind: KindString, String: ContentItem.ItemType},
		"source":    {Kind: KindString, String: ContentItem.Source},
		"flags":     {Kind: KindStringSet, Strings: ContentItem.Flags},
	},
}
