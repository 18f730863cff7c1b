package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

// RubyRubyMirror reads the RubyRuby archive over plain HTTP. The archive
// serves a JSON listing at "/{videoID}" and files at "/{videoID}/{name}".
type RubyRubyMirror struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRubyRubyMirror creates the mirror from configuration.
func NewRubyRubyMirror(cfg *config.RubyRubyConfig, logger *zap.Logger) *RubyRubyMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RubyRubyMirror{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
		logger:  logger,
	}
}

func (m *RubyRubyMirror) Name() string { return "rubyruby" }

type rubyrubyEntry struct {
	Name string `json:"name"`
	File struct {
		MimeType string `json:"mimeType"`
		Size     int64  `json:"size"`
	} `json:"file"`
}

// ListFiles lists the video's archived files.
func (m *RubyRubyMirror) ListFiles(ctx context.Context, videoID string) ([]File, error) {
	endpoint, err := url.JoinPath(m.baseURL, videoID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, apperrors.ErrExternalAPIFailed("rubyruby", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound("video " + videoID + " in rubyruby archive")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrExternalAPIFailed("rubyruby",
			fmt.Errorf("listing status %d", resp.StatusCode))
	}

	var entries []rubyrubyEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, apperrors.ErrExternalAPIFailed("rubyruby", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		files = append(files, File{
			Type: classifyByMime(videoID, entry.Name, entry.File.MimeType),
			Name: entry.Name,
			Size: entry.File.Size,
		})
	}
	return files, nil
}

// classifyByMime prefers the listing's MIME type over name suffixes, falling
// back to the shared name-based classification.
func classifyByMime(videoID, name, mimeType string) FileType {
	switch {
	case len(mimeType) >= 6 && mimeType[:6] == "audio/":
		return FileAudioOnly
	case len(mimeType) >= 6 && mimeType[:6] == "video/":
		return FileVideoOnly
	case len(mimeType) >= 6 && mimeType[:6] == "image/":
		return FileThumbnail
	default:
		return Classify(videoID, name)
	}
}

// Download fetches one archived file whole.
func (m *RubyRubyMirror) Download(ctx context.Context, videoID, fileName string) ([]byte, error) {
	endpoint, err := url.JoinPath(m.baseURL, videoID, fileName)
	if err != nil {
		return nil, err
	}
	m.logger.Info("downloading from rubyruby archive",
		zap.String("video_id", videoID), zap.String("file", fileName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, apperrors.ErrExternalAPIFailed("rubyruby", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound(fileName + " for video " + videoID + " in rubyruby archive")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrExternalAPIFailed("rubyruby",
			fmt.Errorf("download status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}
