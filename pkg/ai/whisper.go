package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

// WhisperAudioFormats are the container formats Whisper accepts.
var WhisperAudioFormats = []string{"flac", "mp3", "mp4", "mpeg", "mpga", "m4a", "ogg", "wav", "webm"}

// WhisperClient talks to OpenAI-compatible transcription endpoints such as
// faster-whisper-server.
type WhisperClient struct {
	pool   *EndpointPool
	apiKey string
	model  string
	client *http.Client
}

// NewWhisperClient creates a client over the configured transcription hosts.
func NewWhisperClient(cfg *config.WhisperConfig) (*WhisperClient, error) {
	pool, err := NewEndpointPool(cfg.BaseURLs, cfg.ParallelPerHost)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &WhisperClient{
		pool:   pool,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Model returns the transcription model requests are made with.
func (c *WhisperClient) Model() string { return c.model }

// Transcribe uploads audio and returns the transcription in SRT form.
// Language may be empty to let the model detect it.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	baseURL, release, err := c.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	var result string
	operation := func() error {
		value, err := c.transcribeOnce(ctx, baseURL, audio, filename, language)
		if err != nil {
			return err
		}
		result = value
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 2 * time.Second
	expBackoff.MaxElapsedTime = 2 * time.Minute

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return "", apperrors.ErrExternalAPIFailed("whisper", err)
	}
	return result, nil
}

func (c *WhisperClient) transcribeOnce(ctx context.Context, baseURL string, audio []byte, filename, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}

	fields := map[string]string{
		"model":           c.model,
		"response_format": "srt",
	}
	if language != "" {
		fields["language"] = language
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint, err := url.JoinPath(baseURL, "audio/transcriptions")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("whisper status %d: %s", resp.StatusCode, raw)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	return string(raw), nil
}
