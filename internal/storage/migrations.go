package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// migrate walks the version chain until it converges. Each step is gated on
// the exact version it upgrades from and is idempotent, so re-running after a
// crash finishes the interrupted step. A version seen twice means the chain
// loops and the store is left alone.
func (s *Store) migrate() error {
	visited := map[string]bool{}
	for {
		version, err := s.Version()
		if err != nil {
			return err
		}
		if visited[version] {
			return apperrors.ErrMigrationCycle(version)
		}
		visited[version] = true

		steps := []func() error{
			s.migrate010,
			s.migrate020,
			s.migrate030,
			s.migrate040,
			s.migrate050,
			s.migrate060,
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		after, err := s.Version()
		if err != nil {
			return err
		}
		if after == version {
			break
		}
	}

	version, err := s.Version()
	if err != nil {
		return err
	}
	if version != CurrentVersion {
		return apperrors.ErrVersionMismatch(version, CurrentVersion)
	}
	return nil
}

func loadJSONDoc(path string) (map[string]json.RawMessage, bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, apperrors.ErrMetadataInvalid(path, err)
	}
	return doc, true, nil
}

func saveJSONDoc(path string, doc map[string]json.RawMessage) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func rawString(doc map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := doc[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func rawBool(doc map[string]json.RawMessage, key string, fallback bool) bool {
	raw, ok := doc[key]
	if !ok {
		return fallback
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return fallback
	}
	return b
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// forEachRecordDir visits each record directory of a model table that has a
// metadata document. Missing tables are fine, fresh stores have none.
func (s *Store) forEachRecordDir(model string, fn func(dir string) error) error {
	tablePath := filepath.Join(s.path, model)
	entries, err := os.ReadDir(tablePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(tablePath, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataJSON)); err != nil {
			continue
		}
		if err := fn(dir); err != nil {
			return err
		}
	}
	return nil
}

// forEachContentDir visits each content item directory of a video record that
// has a metadata document.
func forEachContentDir(videoDir string, fn func(dir string) error) error {
	contentPath := filepath.Join(videoDir, "content")
	entries, err := os.ReadDir(contentPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(contentPath, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataJSON)); err != nil {
			continue
		}
		if err := fn(dir); err != nil {
			return err
		}
	}
	return nil
}

// migrate010 replaces the boolean refresh/members switches with the flags
// vocabulary, turns skip_subtitles into the youtube_subtitles state map and
// moves loose subtitle files into content items.
func (s *Store) migrate010() error {
	if v, err := s.Version(); err != nil || v != "0.1.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.1.0"))

	err := s.forEachRecordDir(channelModelName, func(dir string) error {
		metaPath := filepath.Join(dir, MetadataJSON)
		doc, ok, err := loadJSONDoc(metaPath)
		if err != nil || !ok {
			return err
		}

		var flags []string
		if !rawBool(doc, "refresh_holodex_info", true) {
			flags = append(flags, FlagHolodexPreserve)
		}
		if !rawBool(doc, "refresh_videos", true) {
			flags = append(flags, FlagMentionsOnly)
		}
		delete(doc, "refresh_holodex_info")
		delete(doc, "refresh_videos")
		doc["flags"] = mustRaw(normalizeFlags(flags))

		return saveJSONDoc(metaPath, doc)
	})
	if err != nil {
		return err
	}

	err = s.forEachRecordDir(videoModelName, func(dir string) error {
		metaPath := filepath.Join(dir, MetadataJSON)
		doc, ok, err := loadJSONDoc(metaPath)
		if err != nil || !ok {
			return err
		}

		var flags []string
		if rawBool(doc, "members_only", false) {
			flags = append(flags, FlagYoutubeMembership)
		}
		delete(doc, "members_only")
		doc["flags"] = mustRaw(normalizeFlags(flags))

		var skipLangs []string
		if raw, ok := doc["skip_subtitles"]; ok {
			_ = json.Unmarshal(raw, &skipLangs)
		}
		delete(doc, "skip_subtitles")
		youtubeSubtitles := map[string]string{}
		for _, lang := range skipLangs {
			if lang == "all" {
				continue // private or unavailable
			}
			youtubeSubtitles[lang] = "missing"
		}
		if len(youtubeSubtitles) > 0 {
			doc["youtube_subtitles"] = mustRaw(youtubeSubtitles)
		}

		if err := saveJSONDoc(metaPath, doc); err != nil {
			return err
		}
		if err := migrate010Subtitles(dir); err != nil {
			return err
		}
		return migrate010Gitignore(dir)
	})
	if err != nil {
		return err
	}

	return s.setVersion("0.2.0")
}

// migrate010Subtitles moves "{source}.{lang}.{ext}" files from the old
// subtitles directory into per-item content directories.
func migrate010Subtitles(videoDir string) error {
	subtitlesPath := filepath.Join(videoDir, "subtitles")
	entries, err := os.ReadDir(subtitlesPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	contentRoot := filepath.Join(videoDir, "content")
	if err := os.MkdirAll(contentRoot, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		parts := strings.SplitN(name, ".", 3)
		if len(parts) != 3 {
			continue
		}
		source, lang := parts[0], parts[1]

		itemDir := filepath.Join(contentRoot, source+"-subtitles-"+lang)
		if err := os.MkdirAll(itemDir, 0o755); err != nil {
			return err
		}

		raw, err := os.ReadFile(filepath.Join(subtitlesPath, name))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(itemDir, name), raw, 0o644); err != nil {
			return err
		}

		meta := map[string]json.RawMessage{
			"item_type":     mustRaw("subtitle"),
			"source":        mustRaw(source),
			"lang":          mustRaw(lang),
			"subtitle_file": mustRaw(name),
		}
		if err := saveJSONDoc(filepath.Join(itemDir, MetadataJSON), meta); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(subtitlesPath, name)); err != nil {
			return err
		}
	}

	return os.Remove(subtitlesPath)
}

func migrate010Gitignore(videoDir string) error {
	gitignorePath := filepath.Join(videoDir, ".gitignore")
	raw, err := os.ReadFile(gitignorePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	raw = bytes.ReplaceAll(raw, []byte("/subtitles\n"), []byte("/content\n"))
	return os.WriteFile(gitignorePath, raw, 0o644)
}

// migrate020 had only compatible format changes, the version just advances.
func (s *Store) migrate020() error {
	if v, err := s.Version(); err != nil || v != "0.2.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.2.0"))
	return s.setVersion("0.3.0")
}

// migrate030 records the store's git privacy and renames every content item
// directory to the content-addressed ID format.
func (s *Store) migrate030() error {
	if v, err := s.Version(); err != nil || v != "0.3.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.3.0"))

	// only "public" stores could exist before privacy was introduced
	doc, err := s.metadataDoc()
	if err != nil {
		return err
	}
	doc["git_privacy"] = mustRaw("public")
	if err := s.files.saveJSON(MetadataJSON, doc); err != nil {
		return err
	}

	err = s.forEachRecordDir(videoModelName, func(videoDir string) error {
		return forEachContentDir(videoDir, func(itemDir string) error {
			return s.migrate030ContentItem(itemDir)
		})
	})
	if err != nil {
		return err
	}

	return s.setVersion("0.4.0")
}

func (s *Store) migrate030ContentItem(itemDir string) error {
	doc, ok, err := loadJSONDoc(filepath.Join(itemDir, MetadataJSON))
	if err != nil || !ok {
		return err
	}

	itemType := rawString(doc, "item_type")
	var fileName string
	switch itemType {
	case "subtitle":
		fileName = rawString(doc, "subtitle_file")
	case "audio":
		fileName = rawString(doc, "audio_file")
	default:
		s.logger.Warn("could not fix content ID", zap.String("path", itemDir))
		return nil
	}

	raw, err := os.ReadFile(filepath.Join(itemDir, fileName))
	if err != nil {
		return err
	}
	checksum, err := BuildChecksum(raw)
	if err != nil {
		return err
	}
	newID, err := BuildContentID(itemType, rawString(doc, "source"), checksum, fileName)
	if err != nil {
		return err
	}

	newDir := filepath.Join(filepath.Dir(itemDir), newID)
	if newDir == itemDir {
		return nil
	}
	s.logger.Info("renaming content item",
		zap.String("from", itemDir), zap.String("to", newDir))
	return os.Rename(itemDir, newDir)
}

// migrate040 backfills the langs list on subtitle items from the main lang.
func (s *Store) migrate040() error {
	if v, err := s.Version(); err != nil || v != "0.4.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.4.0"))

	err := s.forEachRecordDir(videoModelName, func(videoDir string) error {
		return forEachContentDir(videoDir, func(itemDir string) error {
			metaPath := filepath.Join(itemDir, MetadataJSON)
			doc, ok, err := loadJSONDoc(metaPath)
			if err != nil || !ok {
				return err
			}
			if rawString(doc, "item_type") != "subtitle" {
				return nil
			}
			doc["langs"] = mustRaw([]string{rawString(doc, "lang")})
			return saveJSONDoc(metaPath, doc)
		})
	})
	if err != nil {
		return err
	}

	return s.setVersion("0.5.0")
}

// migrate050 reshapes diarization payloads into the config-plus-segments
// form, filling in the known pyannote-3.1 pipeline defaults.
func (s *Store) migrate050() error {
	if v, err := s.Version(); err != nil || v != "0.5.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.5.0"))

	err := s.forEachRecordDir(videoModelName, func(videoDir string) error {
		return forEachContentDir(videoDir, func(itemDir string) error {
			doc, ok, err := loadJSONDoc(filepath.Join(itemDir, MetadataJSON))
			if err != nil || !ok {
				return err
			}
			if rawString(doc, "item_type") != "diarization" {
				return nil
			}
			return migrate050Diarization(filepath.Join(itemDir, DiarizationJSON))
		})
	})
	if err != nil {
		return err
	}

	return s.setVersion("0.6.0")
}

func migrate050Diarization(payloadPath string) error {
	dia, ok, err := loadJSONDoc(payloadPath)
	if err != nil || !ok {
		return err
	}
	if _, ok := dia["checkpoint"]; ok {
		return nil // already migrated
	}

	checkpoint := rawString(dia, "diarization_model")
	if checkpoint == "" {
		checkpoint = "unknown"
	}
	delete(dia, "diarization_model")

	var (
		segmentationModel       any
		segmentationBatchSize   = -1
		embeddingModel          any
		embeddingBatchSize      = -1
		embeddingExcludeOverlap = false
		clustering              = "unknown"
	)
	if checkpoint == "pyannote/speaker-diarization-3.1" {
		segmentationModel = "pyannote/segmentation-3.0"
		segmentationBatchSize = 32
		embeddingModel = "pyannote/wespeaker-voxceleb-resnet34-LM"
		embeddingBatchSize = 32
		embeddingExcludeOverlap = true
		clustering = "AgglomerativeClustering"
	}

	// the model used for the stored speaker embeddings matters more than
	// the one the diarization ran with
	if v := rawString(dia, "embedding_model"); v != "" {
		embeddingModel = v
	}
	delete(dia, "embedding_model")

	segments := dia["diarization"]
	delete(dia, "diarization")

	dia["checkpoint"] = mustRaw(checkpoint)
	dia["segmentation_model"] = mustRaw(segmentationModel)
	dia["segmentation_batch_size"] = mustRaw(segmentationBatchSize)
	dia["embedding_model"] = mustRaw(embeddingModel)
	dia["embedding_batch_size"] = mustRaw(embeddingBatchSize)
	dia["embedding_exclude_overlap"] = mustRaw(embeddingExcludeOverlap)
	dia["clustering"] = mustRaw(clustering)
	dia["segments"] = segments

	return saveJSONDoc(payloadPath, dia)
}

// migrate060 has nothing to do, the version just advances.
func (s *Store) migrate060() error {
	if v, err := s.Version(); err != nil || v != "0.6.0" {
		return err
	}
	s.logger.Info("storage migration", zap.String("from", "0.6.0"))
	return s.setVersion("0.7.0")
}
