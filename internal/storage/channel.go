package storage

import "encoding/json"

// ChannelMetadata is the typed form of a channel's metadata document. Unknown
// keys survive round trips through Extra so documents written by newer schema
// generations are never silently truncated.
type ChannelMetadata struct {
	Flags []string `json:"flags"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m ChannelMetadata) MarshalJSON() ([]byte, error) {
	type plain ChannelMetadata
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *ChannelMetadata) UnmarshalJSON(data []byte) error {
	type plain ChannelMetadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraKeys(data, "flags")
	if err != nil {
		return err
	}
	*m = ChannelMetadata(p)
	m.Extra = extra
	return nil
}

// ChannelRecord represents a content creator's channel. It owns zero or more
// videos, looked up by scanning, not by an explicit index.
type ChannelRecord struct {
	Record
}

const channelModelName = "channel"

func newChannelRecord(store *Store, id string) *ChannelRecord {
	return &ChannelRecord{Record: newRecord(store, channelModelName, id)}
}

// Create initializes the channel directory and metadata. Fails if the channel
// already exists.
func (c *ChannelRecord) Create(meta ChannelMetadata) error {
	if meta.Flags == nil {
		meta.Flags = []string{}
	}
	return c.create(meta)
}

// Metadata returns the parsed metadata document.
func (c *ChannelRecord) Metadata() (ChannelMetadata, error) {
	var meta ChannelMetadata
	_, err := c.files.loadJSON(MetadataJSON, &meta)
	return meta, err
}

func (c *ChannelRecord) YoutubeURL() string {
	if id := c.YoutubeID(); id != "" {
		return "https://www.youtube.com/channel/" + id
	}
	return ""
}

func (c *ChannelRecord) HolodexURL() string {
	if id := c.HolodexID(); id != "" {
		return "https://holodex.net/channel/" + id
	}
	return ""
}

func (c *ChannelRecord) Name() string {
	if name := c.infoString(HolodexJSON, "name"); name != "" {
		return name
	}
	return c.infoString(YoutubeJSON, "title")
}

// ListVideos returns the channel's videos by scanning all video records for a
// matching channel_id, narrowed by an optional predicate.
func (c *ChannelRecord) ListVideos(pred func(*VideoRecord) bool) ([]*VideoRecord, error) {
	return c.store.ListVideos(func(v *VideoRecord) bool {
		if v.ChannelID() != c.ID() {
			return false
		}
		return pred == nil || pred(v)
	})
}

// ChannelSchema is the statically declared filterable-attribute table of
// channel records.
var ChannelSchema = &Schema[*ChannelRecord]{
	TypeName: "channel",
	Fields: map[string]Field[*ChannelRecord]{
		"id":         {Kind: KindString, String: func(c *ChannelRecord) string { return c.ID() }},
		"name":       {Kind: KindString, String: func(c *ChannelRecord) string { return c.Name() }},
		"youtube_id": {Kind: KindString, String: func(c *ChannelRecord) string { return c.YoutubeID() }},
		"holodex_id": {Kind: KindString, String: func(c *ChannelRecord) string { return c.HolodexID() }},
		"flags":      {Kind: KindStringSet, Strings: func(c *ChannelRecord) []string { return c.Flags() }},
	},
}
