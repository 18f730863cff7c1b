package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// Record is the directory-backed persisted entity shared by channels and
// videos. Concrete record types embed it and add their typed metadata.
// A record "exists" iff its directory is present AND its metadata document
// parses; those two facts are always checked together.
type Record struct {
	store     *Store
	modelName string
	id        string
	files     *fileStore
}

func newRecord(store *Store, modelName, id string) Record {
	dir := filepath.Join(store.path, modelName, id)
	return Record{
		store:     store,
		modelName: modelName,
		id:        id,
		files:     newFileStore(dir),
	}
}

func (r *Record) ID() string        { return r.id }
func (r *Record) ModelName() string { return r.modelName }
func (r *Record) Path() string      { return r.files.dir }

// Exists reports whether the backing directory is present and the metadata
// document parses. The metadata file is stat'ed directly so an externally
// deleted document is noticed even when a parsed copy is cached.
func (r *Record) Exists() bool {
	info, err := os.Stat(r.Path())
	if err != nil || !info.IsDir() {
		return false
	}

	metaPath := filepath.Join(r.Path(), MetadataJSON)
	if _, err := os.Stat(metaPath); err != nil {
		r.files.invalidate(MetadataJSON)
		return false
	}

	var doc map[string]json.RawMessage
	ok, err := r.files.loadJSON(MetadataJSON, &doc)
	return ok && err == nil
}

// create writes the initial metadata document. Creating a record that already
// exists is a programmer error, not an idempotent skip.
func (r *Record) create(metadata any) error {
	if r.Exists() {
		return apperrors.ErrAlreadyExists(r.modelName + " record " + r.id)
	}
	if err := os.MkdirAll(r.Path(), 0o755); err != nil {
		return err
	}
	return r.files.saveJSON(MetadataJSON, metadata)
}

// metadataDoc returns the raw metadata document for generic read-modify-write
// operations that must preserve keys the caller does not know about.
func (r *Record) metadataDoc() (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	ok, err := r.files.loadJSON(MetadataJSON, &doc)
	if err != nil {
		return nil, apperrors.ErrMetadataInvalid(r.files.path(MetadataJSON), err)
	}
	if !ok {
		return nil, apperrors.ErrMetadataInvalid(r.files.path(MetadataJSON), nil)
	}
	return doc, nil
}

func (r *Record) saveMetadataDoc(doc map[string]json.RawMessage) error {
	return r.files.saveJSON(MetadataJSON, doc)
}

// Flags

func (r *Record) Flags() []string {
	return readFlags(r.files)
}

func (r *Record) HasFlag(flag string) bool {
	return slices.Contains(r.Flags(), flag)
}

// AddFlags persists the given flags on the record, preserving every other
// metadata key.
func (r *Record) AddFlags(flags ...string) error {
	doc, err := r.metadataDoc()
	if err != nil {
		return err
	}
	return saveFlags(r.files, doc, mergeFlags(readFlags(r.files), flags))
}

// SetFlags replaces the record's flag set.
func (r *Record) SetFlags(flags []string) error {
	doc, err := r.metadataDoc()
	if err != nil {
		return err
	}
	return saveFlags(r.files, doc, normalizeFlags(flags))
}

// Shared flag helpers, used by records and content items alike.

func readFlags(files *fileStore) []string {
	var m struct {
		Flags []string `json:"flags"`
	}
	if ok, err := files.loadJSON(MetadataJSON, &m); !ok || err != nil {
		return nil
	}
	return m.Flags
}

func saveFlags(files *fileStore, doc map[string]json.RawMessage, flags []string) error {
	raw, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	doc["flags"] = raw
	return files.saveJSON(MetadataJSON, doc)
}

func mergeFlags(current, added []string) []string {
	return normalizeFlags(append(slices.Clone(current), added...))
}

func normalizeFlags(flags []string) []string {
	out := slices.Clone(flags)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
