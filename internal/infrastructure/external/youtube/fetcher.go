// Package youtube is the boundary for creator-uploaded subtitle downloads.
// Downloading needs a full yt-dlp setup, so the pipeline only depends on the
// narrow fetch contract and access failures are classified into persistent
// video flags by the caller.
package youtube

import "context"

// NoopFetcher is the default fetcher when no downloader is configured. It
// finds no subtitles, which leaves the missing-language bookkeeping to mark
// old videos as skipped.
type NoopFetcher struct{}

func (NoopFetcher) FetchSubtitles(ctx context.Context, videoID string, langs []string) (map[string]string, error) {
	return nil, nil
}
