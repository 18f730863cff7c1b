package process

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/archive"
	"github.com/johnquangdev/holo-archive/internal/storage"
)

var mirrorInfoDocs = map[string]string{
	"ragtag":   storage.RagtagJSON,
	"rubyruby": storage.RubyRubyJSON,
}

// fetchVideo downloads what the later stages need: creator subtitles from
// YouTube and an audio file from the archive mirrors. Everything is
// content-addressed, so re-running on a fetched video is a no-op.
func (s *Service) fetchVideo(ctx context.Context, video *storage.VideoRecord, params Params) error {
	if err := s.fetchSubtitles(ctx, video, params); err != nil {
		return err
	}
	if err := s.fetchAudio(ctx, video); err != nil {
		return err
	}
	if _, err := video.SkipMissingSubtitles(params.Langs, params.SkipAge); err != nil {
		return err
	}
	return video.UpdateGitignore()
}

// fetchSubtitles pulls the requested languages that are neither stored yet
// nor already marked missing/garbage. Access-restriction failures become
// persistent video flags instead of errors so the next run skips the video.
func (s *Service) fetchSubtitles(ctx context.Context, video *storage.VideoRecord, params Params) error {
	if s.youtube == nil || len(params.Langs) == 0 {
		return nil
	}
	if video.HasFlag(storage.FlagYoutubePrivate) ||
		video.HasFlag(storage.FlagYoutubeUnavailable) ||
		video.HasFlag(storage.FlagYoutubeMembership) ||
		video.HasFlag(storage.FlagYoutubeAgeRestricted) {
		return nil
	}

	wanted, err := s.wantedLangs(video, params.Langs)
	if err != nil {
		return err
	}
	if len(wanted) == 0 {
		return nil
	}

	subtitles, err := s.youtube.FetchSubtitles(ctx, video.YoutubeID(), wanted)
	if err != nil {
		flag := storage.ClassifyFetchError(err)
		if flag == "" {
			return err
		}
		s.logger.Warn("video not accessible, flagging",
			zap.String("video_id", video.ID()), zap.String("flag", flag))
		if err := video.AddFlags(flag); err != nil {
			return err
		}
		return video.UpdateGitignore()
	}

	for lang, content := range subtitles {
		_, err := video.CreateSubtitleItem(storage.SubtitleMetadata{
			Source:       "youtube",
			Lang:         lang,
			SubtitleFile: "youtube." + lang + ".srt",
		}, content)
		if err != nil {
			return err
		}
	}
	return nil
}

// wantedLangs filters the requested languages down to those with no stored
// youtube subtitle item and no missing/garbage bookkeeping entry.
func (s *Service) wantedLangs(video *storage.VideoRecord, langs []string) ([]string, error) {
	states := video.YoutubeSubtitles()

	stored := make(map[string]bool)
	items, err := video.ListSubtitles(func(item *storage.SubtitleItem) bool {
		return item.Source() == "youtube"
	})
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		for _, lang := range item.Langs() {
			stored[lang] = true
		}
	}

	var wanted []string
	for _, lang := range langs {
		if _, skip := states[lang]; skip || stored[lang] {
			continue
		}
		wanted = append(wanted, lang)
	}
	return wanted, nil
}

// fetchAudio tries each archive mirror in order until one has the video,
// stores the mirror's file listing as a source info document and downloads
// the best audio file.
func (s *Service) fetchAudio(ctx context.Context, video *storage.VideoRecord) error {
	audios, err := video.ListAudio(nil)
	if err != nil {
		return err
	}
	if len(audios) > 0 {
		return nil
	}

	for _, mirror := range s.mirrors {
		files, err := mirror.ListFiles(ctx, video.YoutubeID())
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND) {
				continue
			}
			return err
		}

		if doc, ok := mirrorInfoDocs[mirror.Name()]; ok {
			listing, err := json.Marshal(files)
			if err != nil {
				return err
			}
			if err := video.SetInfo(doc, listing); err != nil {
				return err
			}
		}

		audio, ok := archive.PickAudio(files)
		if !ok {
			continue
		}

		data, err := mirror.Download(ctx, video.YoutubeID(), audio.Name)
		if err != nil {
			return err
		}
		if _, err := video.CreateAudioItem(mirror.Name(), audio.Name, data); err != nil {
			return err
		}

		s.logger.Info("audio fetched",
			zap.String("video_id", video.ID()),
			zap.String("mirror", mirror.Name()),
			zap.String("file", audio.Name),
			zap.Int("bytes", len(data)))
		return nil
	}
	return nil
}
