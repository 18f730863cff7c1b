package storage

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Per-source info documents stored next to a record's metadata. Each holds the
// raw upstream API response so nothing is lost between schema generations.
const (
	HolodexJSON  = "holodex.json"
	YoutubeJSON  = "youtube.json"
	RagtagJSON   = "ragtag.json"
	RubyRubyJSON = "rubyruby.json"
)

// infoString extracts one string field from a source info document; missing
// documents and missing keys both read as "".
func (r *Record) infoString(file, key string) string {
	var doc map[string]json.RawMessage
	if ok, err := r.files.loadJSON(file, &doc); !ok || err != nil {
		return ""
	}
	raw, ok := doc[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r *Record) hasInfo(file string) bool {
	var doc map[string]json.RawMessage
	ok, err := r.files.loadJSON(file, &doc)
	return ok && err == nil
}

// Info returns the named source document raw, or nil when absent.
func (r *Record) Info(file string) json.RawMessage {
	raw, ok, err := r.files.loadBytes(file)
	if !ok || err != nil {
		return nil
	}
	return raw
}

// SetInfo replaces (or with nil raw, removes) the named source document.
func (r *Record) SetInfo(file string, raw json.RawMessage) error {
	if raw == nil {
		r.store.logger.Info("removing source info",
			zap.String("model", r.modelName), zap.String("id", r.id), zap.String("file", file))
		return r.files.remove(file)
	}

	r.store.logger.Info("saving source info",
		zap.String("model", r.modelName), zap.String("id", r.id), zap.String("file", file))
	return r.files.saveBytes(file, raw)
}

// HolodexID prefers the Holodex document; YouTube info is the fallback.
// The two are interchangeable sources of truth for the same identifier.
func (r *Record) HolodexID() string {
	if id := r.infoString(HolodexJSON, "id"); id != "" {
		return id
	}
	return r.infoString(YoutubeJSON, "id")
}

// YoutubeID prefers the YouTube document with Holodex as fallback.
func (r *Record) YoutubeID() string {
	if id := r.infoString(YoutubeJSON, "id"); id != "" {
		return id
	}
	return r.infoString(HolodexJSON, "id")
}
