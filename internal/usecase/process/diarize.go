package process

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/storage"
)

// diarizeVideo runs speaker diarization on every stored audio item that has
// no diarization item yet.
func (s *Service) diarizeVideo(ctx context.Context, video *storage.VideoRecord) error {
	if s.diarizer == nil {
		return nil
	}

	audios, err := video.ListAudio(nil)
	if err != nil {
		return err
	}

	for _, audio := range audios {
		done, err := s.hasDiarization(video, audio.ID())
		if err != nil {
			return err
		}
		if done {
			continue
		}

		data, err := os.ReadFile(audio.AudioPath())
		if err != nil {
			return err
		}

		s.logger.Info("diarizing audio",
			zap.String("video_id", video.ID()),
			zap.String("audio_id", audio.ID()),
			zap.Int("bytes", len(data)))

		result, err := s.diarizer.Diarize(ctx, data, audio.AudioFile())
		if err != nil {
			return err
		}

		if _, err := video.CreateDiarizationItem("pyannote", audio.ID(), result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) hasDiarization(video *storage.VideoRecord, audioID string) (bool, error) {
	items, err := video.ListDiarizations(func(item *storage.DiarizationItem) bool {
		return item.AudioID() == audioID
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}
