package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"weak"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// CurrentVersion is the storage schema generation this code reads and writes.
// Older stores are migrated forward on open.
const CurrentVersion = "0.7.0"

type cacheKey struct {
	model string
	id    string
}

// weakEntry lets the cache hold records of different concrete types while
// still asking each entry whether its referent was collected.
type weakEntry interface {
	gone() bool
}

type weakRef[T any] struct {
	p weak.Pointer[T]
}

func (w weakRef[T]) gone() bool { return w.p.Value() == nil }

// Store is the root of a directory-backed archive. Records are cached by
// identity through weak pointers: two lookups of the same live record return
// the same object, but the cache never keeps a record alive on its own.
type Store struct {
	path   string
	logger *zap.Logger
	files  *fileStore

	mu    sync.Mutex
	cache map[cacheKey]weakEntry
}

// Open opens the store at path, initializing a fresh one when the directory
// does not exist and migrating an old one forward to CurrentVersion.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		path:   path,
		logger: logger,
		files:  newFileStore(path),
		cache:  make(map[cacheKey]weakEntry),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
		if err := s.files.saveJSON(MetadataJSON, map[string]string{"version": CurrentVersion}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	ok, err := s.files.loadJSON(MetadataJSON, &doc)
	if err != nil {
		return nil, apperrors.ErrMetadataInvalid(s.files.path(MetadataJSON), err)
	}
	if !ok {
		return nil, apperrors.ErrMetadataInvalid(s.files.path(MetadataJSON), nil)
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string        { return s.path }
func (s *Store) Logger() *zap.Logger { return s.logger }

func (s *Store) metadataDoc() (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	ok, err := s.files.loadJSON(MetadataJSON, &doc)
	if err != nil {
		return nil, apperrors.ErrMetadataInvalid(s.files.path(MetadataJSON), err)
	}
	if !ok {
		return nil, apperrors.ErrMetadataInvalid(s.files.path(MetadataJSON), nil)
	}
	return doc, nil
}

// Version returns the store's current schema version.
func (s *Store) Version() (string, error) {
	doc, err := s.metadataDoc()
	if err != nil {
		return "", err
	}
	var version string
	if raw, ok := doc["version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return "", apperrors.ErrMetadataInvalid(s.files.path(MetadataJSON), err)
		}
	}
	return version, nil
}

func (s *Store) setVersion(version string) error {
	doc, err := s.metadataDoc()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(version)
	if err != nil {
		return err
	}
	doc["version"] = raw
	return s.files.saveJSON(MetadataJSON, doc)
}

// getRecord returns the identity-cached record, building and caching it when
// needed. Missing records resolve to nil.
func getRecord[T any](s *Store, model, id string, build func() *T, exists func(*T) bool) *T {
	key := cacheKey{model: model, id: id}

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok {
		if ref, ok := entry.(weakRef[T]); ok {
			if v := ref.p.Value(); v != nil {
				s.mu.Unlock()
				return v
			}
		}
		delete(s.cache, key)
	}
	s.mu.Unlock()

	v := build()
	if !exists(v) {
		return nil
	}

	s.mu.Lock()
	s.cache[key] = weakRef[T]{p: weak.Make(v)}
	s.mu.Unlock()

	// The cleanup only drops the entry when the weak pointer is dead, so a
	// replacement entry registered for the same key is never evicted.
	runtime.AddCleanup(v, func(k cacheKey) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if entry, ok := s.cache[k]; ok && entry.gone() {
			delete(s.cache, k)
		}
	}, key)

	return v
}

func listRecords[T any](s *Store, model string, get func(id string) *T, pred func(*T) bool) ([]*T, error) {
	entries, err := os.ReadDir(filepath.Join(s.path, model))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []*T
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record := get(entry.Name())
		if record == nil {
			continue
		}
		if pred == nil || pred(record) {
			records = append(records, record)
		}
	}
	return records, nil
}

// Channels

// GetChannel returns the channel record, or nil when it does not exist.
func (s *Store) GetChannel(id string) (*ChannelRecord, error) {
	record := getRecord(s, channelModelName, id,
		func() *ChannelRecord { return newChannelRecord(s, id) },
		func(c *ChannelRecord) bool { return c.Exists() })
	return record, nil
}

// ListChannels returns all channel records, optionally filtered.
func (s *Store) ListChannels(pred func(*ChannelRecord) bool) ([]*ChannelRecord, error) {
	return listRecords(s, channelModelName, func(id string) *ChannelRecord {
		c, _ := s.GetChannel(id)
		return c
	}, pred)
}

// CreateChannel creates the channel record with the given metadata and
// returns it.
func (s *Store) CreateChannel(id string, meta ChannelMetadata) (*ChannelRecord, error) {
	record := newChannelRecord(s, id)
	if err := record.Create(meta); err != nil {
		return nil, err
	}
	s.logger.Info("created channel record", zap.String("id", id))
	return s.GetChannel(id)
}

// Videos

// GetVideo returns the video record, or nil when it does not exist.
func (s *Store) GetVideo(id string) (*VideoRecord, error) {
	record := getRecord(s, videoModelName, id,
		func() *VideoRecord { return newVideoRecord(s, id) },
		func(v *VideoRecord) bool { return v.Exists() })
	return record, nil
}

// ListVideos returns all video records, optionally filtered.
func (s *Store) ListVideos(pred func(*VideoRecord) bool) ([]*VideoRecord, error) {
	return listRecords(s, videoModelName, func(id string) *VideoRecord {
		v, _ := s.GetVideo(id)
		return v
	}, pred)
}

// CreateVideo creates the video record with the given metadata and returns
// it.
func (s *Store) CreateVideo(id string, meta VideoMetadata) (*VideoRecord, error) {
	record := newVideoRecord(s, id)
	if err := record.Create(meta); err != nil {
		return nil, err
	}
	s.logger.Info("created video record",
		zap.String("id", id), zap.String("channel_id", meta.ChannelID))
	return s.GetVideo(id)
}
