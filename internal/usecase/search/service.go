// Package search is the use case that runs subtitle searches across the
// whole archive.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/domain/entities"
	"github.com/johnquangdev/holo-archive/internal/search"
	"github.com/johnquangdev/holo-archive/internal/storage"
)

// DefaultContextSeconds is how far context lines extend around a match when
// the request does not say otherwise.
const DefaultContextSeconds = 15.0

// Params describe one search request.
type Params struct {
	Value         string
	Regex         bool
	CaseSensitive bool

	// Filter clauses in "name:op:value" form.
	VideoFilters    []string
	SubtitleFilters []string

	// Context expansion around each match, in seconds. Zero means
	// DefaultContextSeconds; pass a negative value for no context.
	TimeBefore float64
	TimeAfter  float64
}

// ResultLine is one line of a match, context lines included.
type ResultLine struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Lang    string  `json:"lang,omitempty"`
	Matched bool    `json:"matched"`
}

// Match is one search hit with its surrounding context lines.
type Match struct {
	// Timestamp is the start of the first matched line, in whole seconds.
	Timestamp  int64        `json:"timestamp"`
	YoutubeURL string       `json:"youtube_url,omitempty"`
	Lines      []ResultLine `json:"lines"`
}

// Result groups the matches found in one subtitle item.
type Result struct {
	VideoID     string   `json:"video_id"`
	VideoTitle  string   `json:"video_title,omitempty"`
	ChannelID   string   `json:"channel_id,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	ItemID      string   `json:"item_id"`
	Langs       []string `json:"langs,omitempty"`
	MembersOnly bool     `json:"members_only,omitempty"`
	Matches     []Match  `json:"matches"`
}

// Service runs searches over the record store.
type Service struct {
	store  *storage.Store
	logger *zap.Logger
}

// NewService creates a search service.
func NewService(store *storage.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Search walks every video matching the video filters, loads each subtitle
// item passing the subtitle filters, and collects all matches with time-based
// context expansion.
func (s *Service) Search(ctx context.Context, params Params) ([]Result, error) {
	if params.TimeBefore == 0 {
		params.TimeBefore = DefaultContextSeconds
	}
	if params.TimeAfter == 0 {
		params.TimeAfter = DefaultContextSeconds
	}

	videoPred, err := storage.VideoSchema.BuildStringFilter(params.VideoFilters...)
	if err != nil {
		return nil, err
	}
	subtitlePred, err := storage.SubtitleSchema.BuildStringFilter(params.SubtitleFilters...)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	videos, err := s.store.ListVideos(videoPred)
	if err != nil {
		return nil, err
	}

	results := []Result{}
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := video.ListSubtitles(subtitlePred)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			result, err := s.searchItem(video, item, params)
			if err != nil {
				return nil, err
			}
			if result != nil {
				results = append(results, *result)
			}
		}
	}

	s.logger.Info("search finished",
		zap.String("value", params.Value),
		zap.Bool("regex", params.Regex),
		zap.Int("videos", len(videos)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(started)))

	return results, nil
}

func (s *Service) searchItem(video *storage.VideoRecord, item *storage.SubtitleItem, params Params) (*Result, error) {
	tx, err := item.LoadTranscription()
	if err != nil {
		s.logger.Warn("skipping unreadable subtitle item",
			zap.String("video_id", video.ID()), zap.String("item_id", item.ID()), zap.Error(err))
		return nil, nil
	}

	index := search.FromTranscription(tx)
	matchIndexes, err := index.Search(params.Value, params.Regex, params.CaseSensitive)
	if err != nil {
		return nil, err
	}
	if len(matchIndexes) == 0 {
		return nil, nil
	}

	result := &Result{
		VideoID:     video.ID(),
		VideoTitle:  video.Title(),
		ChannelID:   video.ChannelID(),
		ItemID:      item.ID(),
		Langs:       tx.Langs(),
		MembersOnly: video.HasFlag(storage.FlagYoutubeMembership),
		Matches:     make([]Match, 0, len(matchIndexes)),
	}
	if publishedAt := video.PublishedAt(); !publishedAt.IsZero() {
		result.PublishedAt = publishedAt.Format("2006-01-02")
	}

	youtubeURL := video.YoutubeURL()
	for _, indexes := range matchIndexes {
		match, err := buildMatch(tx.Segments, index, indexes, youtubeURL, params)
		if err != nil {
			return nil, err
		}
		result.Matches = append(result.Matches, match)
	}
	return result, nil
}

// buildMatch expands one match's line indexes with context lines on both
// sides and assembles the timestamped lines.
func buildMatch(segments []entities.TranscriptionSegment, index *search.Index, indexes []int, youtubeURL string, params Params) (Match, error) {
	first, last := indexes[0], indexes[len(indexes)-1]

	from := first
	if params.TimeBefore > 0 {
		var err error
		from, err = index.IndexToPastIndex(first, params.TimeBefore)
		if err != nil {
			return Match{}, err
		}
	}
	to := last
	if params.TimeAfter > 0 {
		var err error
		to, err = index.IndexToFutureIndex(last, params.TimeAfter)
		if err != nil {
			return Match{}, err
		}
	}

	matched := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		matched[idx] = true
	}

	timestamp := int64(segments[first].Start)
	match := Match{
		Timestamp: timestamp,
		Lines:     make([]ResultLine, 0, to-from+1),
	}
	if youtubeURL != "" {
		match.YoutubeURL = fmt.Sprintf("%s&t=%d", youtubeURL, timestamp)
	}

	for idx := from; idx <= to; idx++ {
		seg := segments[idx]
		match.Lines = append(match.Lines, ResultLine{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Lang:    seg.Lang,
			Matched: matched[idx],
		})
	}
	return match, nil
}
