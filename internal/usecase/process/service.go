// Package process is the batch pipeline use case: refresh metadata, fetch
// archived media, diarize audio and transcribe speech into subtitle items.
package process

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/domain/entities"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/archive"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/holodex"
	"github.com/johnquangdev/holo-archive/internal/storage"
	"github.com/johnquangdev/holo-archive/internal/vad"
	"github.com/johnquangdev/holo-archive/pkg/config"
	"github.com/johnquangdev/holo-archive/pkg/jobcontext"
)

// MetadataAPI lists channels and videos from the metadata service.
type MetadataAPI interface {
	Channel(ctx context.Context, id string) (*holodex.Channel, error)
	OrgChannels(ctx context.Context, org string) ([]*holodex.Channel, error)
	ChannelVideos(ctx context.Context, channelID string) ([]*holodex.Video, error)
}

// Diarizer splits audio into per-speaker speech segments.
type Diarizer interface {
	Diarize(ctx context.Context, audio []byte, filename string) (*entities.Diarization, error)
}

// Transcriber converts one audio chunk to SRT text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
	Model() string
}

// AudioSlicer cuts a time window out of an audio file. The media handling
// behind it (ffmpeg or otherwise) is the implementation's business.
type AudioSlicer interface {
	Slice(ctx context.Context, audio []byte, start, end float64) ([]byte, error)
}

// SubtitleFetcher downloads creator-uploaded subtitles from YouTube. Returns
// lang → SRT content for every language it could fetch.
type SubtitleFetcher interface {
	FetchSubtitles(ctx context.Context, videoID string, langs []string) (map[string]string, error)
}

// Per-video job timeouts by pipeline stage.
const (
	fetchTimeout      = 30 * time.Minute
	diarizeTimeout    = 2 * time.Hour
	transcribeTimeout = 4 * time.Hour
)

// Service drives the pipeline over the record store.
type Service struct {
	store       *storage.Store
	metadata    MetadataAPI
	mirrors     []archive.Mirror
	youtube     SubtitleFetcher
	diarizer    Diarizer
	transcriber Transcriber
	slicer      AudioSlicer
	cfg         config.ProcessConfig
	vadParams   vad.Params
	logger      *zap.Logger
}

// Deps carries everything a Service needs. Nil clients disable the stages
// that use them.
type Deps struct {
	Store       *storage.Store
	Metadata    MetadataAPI
	Mirrors     []archive.Mirror
	Youtube     SubtitleFetcher
	Diarizer    Diarizer
	Transcriber Transcriber
	Slicer      AudioSlicer
	Config      config.ProcessConfig
	VADParams   *vad.Params
	Logger      *zap.Logger
}

// NewService creates a pipeline service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	params := vad.DefaultParams()
	if deps.VADParams != nil {
		params = *deps.VADParams
	}
	return &Service{
		store:       deps.Store,
		metadata:    deps.Metadata,
		mirrors:     deps.Mirrors,
		youtube:     deps.Youtube,
		diarizer:    deps.Diarizer,
		transcriber: deps.Transcriber,
		slicer:      deps.Slicer,
		cfg:         deps.Config,
		vadParams:   params,
		logger:      logger,
	}
}

// Params select the videos a pipeline run works on and what it fetches.
type Params struct {
	// Filter clauses in "name:op:value" form.
	VideoFilters []string

	// Subtitle languages to fetch and keep bookkeeping for.
	Langs []string

	// Videos younger than SkipAge are not marked missing when a subtitle
	// language cannot be found.
	SkipAge time.Duration
}

func (p *Params) normalize() {
	if p.SkipAge == 0 {
		p.SkipAge = 7 * 24 * time.Hour
	}
}

// Run executes fetch, diarize and transcribe for every selected video, in
// stage order per video.
func (s *Service) Run(ctx context.Context, params Params) error {
	params.normalize()
	videos, err := s.selectVideos(params)
	if err != nil {
		return err
	}
	return s.forEachVideo(ctx, videos, s.cfg.VideoParallel, "process", fetchTimeout+diarizeTimeout+transcribeTimeout,
		func(ctx context.Context, video *storage.VideoRecord) error {
			if err := s.fetchVideo(ctx, video, params); err != nil {
				return err
			}
			if err := s.diarizeVideo(ctx, video); err != nil {
				return err
			}
			return s.transcribeVideo(ctx, video)
		})
}

// Fetch runs only the fetch stage for every selected video.
func (s *Service) Fetch(ctx context.Context, params Params) error {
	params.normalize()
	videos, err := s.selectVideos(params)
	if err != nil {
		return err
	}
	return s.forEachVideo(ctx, videos, s.cfg.FetchParallel, "fetch", fetchTimeout,
		func(ctx context.Context, video *storage.VideoRecord) error {
			return s.fetchVideo(ctx, video, params)
		})
}

// Diarize runs only the diarization stage for every selected video.
func (s *Service) Diarize(ctx context.Context, params Params) error {
	params.normalize()
	videos, err := s.selectVideos(params)
	if err != nil {
		return err
	}
	return s.forEachVideo(ctx, videos, s.cfg.DiarizeParallel, "diarize", diarizeTimeout, s.diarizeVideo)
}

// Transcribe runs only the transcription stage for every selected video.
func (s *Service) Transcribe(ctx context.Context, params Params) error {
	params.normalize()
	videos, err := s.selectVideos(params)
	if err != nil {
		return err
	}
	return s.forEachVideo(ctx, videos, s.cfg.DiarizeParallel, "transcribe", transcribeTimeout, s.transcribeVideo)
}

func (s *Service) selectVideos(params Params) ([]*storage.VideoRecord, error) {
	pred, err := storage.VideoSchema.BuildStringFilter(params.VideoFilters...)
	if err != nil {
		return nil, err
	}
	return s.store.ListVideos(pred)
}

// forEachVideo fans jobFunc out over the videos with bounded parallelism.
// Every video runs inside its own job context with retry and panic recovery.
// The first failure is returned after all workers finish; the rest are
// logged.
func (s *Service) forEachVideo(ctx context.Context, videos []*storage.VideoRecord, parallel int, jobType string, timeout time.Duration, jobFunc func(context.Context, *storage.VideoRecord) error) error {
	if parallel < 1 {
		parallel = 1
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, parallel)
		mu       sync.Mutex
		firstErr error
	)

	for i, video := range videos {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(workerID int, video *storage.VideoRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			jobCtx, cancel := jobcontext.JobBegin(ctx, jobType, video.ID(), workerID, timeout)
			defer cancel()

			err := jobcontext.JobEnd(jobCtx, func(ctx context.Context) error {
				return jobFunc(ctx, video)
			})
			if err == nil {
				return
			}

			s.logger.Error("pipeline job failed",
				zap.String("job_type", jobType),
				zap.String("video_id", video.ID()),
				zap.Error(err))
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(i, video)
	}

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
