package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// MetadataJSON is the metadata document name shared by the store root, every
// record, and every content item.
const MetadataJSON = "metadata.json"

// fileStore is cached whole-file access to the documents of one directory.
// Records and content items embed one; the cache keeps repeated metadata reads
// from hitting the disk, and writes go through it so in-process readers of the
// same record object always observe the latest value.
type fileStore struct {
	dir string

	mu    sync.Mutex
	cache map[string][]byte
}

func newFileStore(dir string) *fileStore {
	return &fileStore{dir: dir, cache: make(map[string][]byte)}
}

func (f *fileStore) path(name string) string {
	return filepath.Join(f.dir, name)
}

// loadBytes returns the file content and whether the file exists.
func (f *fileStore) loadBytes(name string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if raw, ok := f.cache[name]; ok {
		return raw, true, nil
	}

	raw, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	f.cache[name] = raw
	return raw, true, nil
}

func (f *fileStore) loadText(name string) (string, bool, error) {
	raw, ok, err := f.loadBytes(name)
	return string(raw), ok, err
}

// loadJSON unmarshals the named document into v. Returns false when the file
// does not exist.
func (f *fileStore) loadJSON(name string, v any) (bool, error) {
	raw, ok, err := f.loadBytes(name)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

// saveBytes replaces the named file whole. The directory is created on demand.
func (f *fileStore) saveBytes(name string, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(f.path(name), raw, 0o644); err != nil {
		delete(f.cache, name)
		return err
	}

	f.cache[name] = raw
	return nil
}

func (f *fileStore) saveText(name, value string) error {
	return f.saveBytes(name, []byte(value))
}

func (f *fileStore) saveJSON(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.saveBytes(name, raw)
}

// remove deletes the named file; missing files are not an error.
func (f *fileStore) remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.cache, name)
	if err := os.Remove(f.path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// invalidate drops a cache entry so the next load re-reads the disk.
func (f *fileStore) invalidate(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, name)
}
