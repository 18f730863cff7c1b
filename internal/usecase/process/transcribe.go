package process

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/domain/entities"
	"github.com/johnquangdev/holo-archive/internal/storage"
	"github.com/johnquangdev/holo-archive/internal/subtitle"
	"github.com/johnquangdev/holo-archive/internal/vad"
)

// transcribeVideo turns every diarized audio item into a machine
// transcription: voice-activity chunks are cut from the audio, transcribed
// concurrently and merged back into one timestamped document.
func (s *Service) transcribeVideo(ctx context.Context, video *storage.VideoRecord) error {
	if s.transcriber == nil || s.slicer == nil {
		return nil
	}

	diarizations, err := video.ListDiarizations(nil)
	if err != nil {
		return err
	}

	for _, item := range diarizations {
		done, err := s.hasTranscription(video, item.ID())
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := s.transcribeDiarization(ctx, video, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) hasTranscription(video *storage.VideoRecord, diarizationID string) (bool, error) {
	items, err := video.ListSubtitles(func(item *storage.SubtitleItem) bool {
		return item.DiarizationID() == diarizationID && item.WhisperModel() == s.transcriber.Model()
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

func (s *Service) transcribeDiarization(ctx context.Context, video *storage.VideoRecord, item *storage.DiarizationItem) error {
	content, err := video.GetContent(item.AudioID())
	if err != nil {
		return err
	}
	audio, ok := content.(*storage.AudioItem)
	if !ok {
		s.logger.Warn("diarization references no stored audio, skipping",
			zap.String("video_id", video.ID()),
			zap.String("diarization_id", item.ID()))
		return nil
	}

	diarization, err := item.Diarization()
	if err != nil {
		return err
	}
	if diarization == nil {
		return nil
	}

	chunks, err := vad.FromDiarization(diarization, s.vadParams)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	data, err := os.ReadFile(audio.AudioPath())
	if err != nil {
		return err
	}

	s.logger.Info("transcribing audio",
		zap.String("video_id", video.ID()),
		zap.String("audio_id", audio.ID()),
		zap.String("model", s.transcriber.Model()),
		zap.Int("chunks", len(chunks)))

	segments, err := s.transcribeChunks(ctx, data, audio.AudioFile(), chunks)
	if err != nil {
		return err
	}

	tx := &entities.Transcription{
		Source:   "whisper",
		Segments: segments,
		Params: entities.TranscriptionParams{
			Model:       s.transcriber.Model(),
			Padding:     s.vadParams.Padding,
			MinDuration: s.vadParams.MinDuration,
			MaxDuration: s.vadParams.MaxDuration,
			MaxGap:      s.vadParams.MaxGap,
		},
	}
	doc, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	_, err = video.CreateSubtitleItem(storage.SubtitleMetadata{
		Source:        "whisper",
		Lang:          storage.MultiLang,
		SubtitleFile:  "transcription.json",
		Flags:         []string{storage.FlagSubtitleTranscription},
		AudioID:       audio.ID(),
		DiarizationID: item.ID(),
		WhisperModel:  s.transcriber.Model(),
	}, string(doc))
	return err
}

// transcribeChunks slices and transcribes the chunks with bounded
// concurrency, rebases chunk-relative timestamps to the full audio timeline
// and returns the segments in time order.
func (s *Service) transcribeChunks(ctx context.Context, audio []byte, filename string, chunks []vad.Chunk) ([]entities.TranscriptionSegment, error) {
	parallel := s.cfg.TranscribeParallel
	if parallel < 1 {
		parallel = 1
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, parallel)
		mu       sync.Mutex
		firstErr error
		results  = make([][]entities.TranscriptionSegment, len(chunks))
	)

	for i, chunk := range chunks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, chunk vad.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			segments, err := s.transcribeChunk(ctx, audio, filename, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = segments
		}(i, chunk)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var segments []entities.TranscriptionSegment
	for _, part := range results {
		segments = append(segments, part...)
	}
	sort.SliceStable(segments, func(a, b int) bool {
		return segments[a].Start < segments[b].Start
	})
	return segments, nil
}

func (s *Service) transcribeChunk(ctx context.Context, audio []byte, filename string, chunk vad.Chunk) ([]entities.TranscriptionSegment, error) {
	sliced, err := s.slicer.Slice(ctx, audio, chunk.Start, chunk.End)
	if err != nil {
		return nil, err
	}

	srt, err := s.transcriber.Transcribe(ctx, sliced, filename, "")
	if err != nil {
		return nil, err
	}
	if srt == "" {
		return nil, nil
	}

	segments, err := subtitle.ParseSRT(srt, "")
	if err != nil {
		return nil, fmt.Errorf("parse chunk at %.2fs: %w", chunk.Start, err)
	}
	for i := range segments {
		segments[i].Start += chunk.Start
		segments[i].End += chunk.Start
	}
	return segments, nil
}
