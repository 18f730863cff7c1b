package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/internal/domain/entities"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

// PyannoteClient talks to one or more pyannote-server instances that run
// speaker diarization on uploaded audio.
type PyannoteClient struct {
	pool             *EndpointPool
	checkpoint       string
	huggingfaceToken string
	client           *http.Client
}

// NewPyannoteClient creates a client over the configured diarization hosts.
func NewPyannoteClient(cfg *config.PyannoteConfig) (*PyannoteClient, error) {
	pool, err := NewEndpointPool(cfg.BaseURLs, cfg.ParallelPerHost)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &PyannoteClient{
		pool:             pool,
		checkpoint:       cfg.Checkpoint,
		huggingfaceToken: cfg.HuggingfaceToken,
		client:           &http.Client{Timeout: timeout},
	}, nil
}

// Diarize uploads audio and returns the diarization with per-speaker mean
// embeddings. Transient failures are retried with exponential backoff;
// embeddings that came back as NaN are dropped from the result.
func (c *PyannoteClient) Diarize(ctx context.Context, audio []byte, filename string) (*entities.Diarization, error) {
	baseURL, release, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *entities.Diarization
	operation := func() error {
		value, err := c.diarizeOnce(ctx, baseURL, audio, filename)
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
		return nil, apperrors.ErrExternalAPIFailed("pyannote", err)
	}

	result.DropNaNEmbeddings()
	return result, nil
}

func (c *PyannoteClient) diarizeOnce(ctx context.Context, baseURL string, audio []byte, filename string) (*entities.Diarization, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(baseURL, "diarization")
	if err != nil {
		return nil, err
	}
	query := url.Values{"checkpoint": {c.checkpoint}}
	if c.huggingfaceToken != "" {
		query.Set("huggingface_token", c.huggingfaceToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+query.Encode(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("pyannote status %d: %s", resp.StatusCode, raw)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var value entities.Diarization
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return nil, backoff.Permanent(err)
	}
	return &value, nil
}

// Healthcheck probes every configured host and returns the first failure.
func (c *PyannoteClient) Healthcheck(ctx context.Context) error {
	for _, e := range c.pool.endpoints {
		endpoint, err := url.JoinPath(e.baseURL, "healthcheck")
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return apperrors.ErrExternalAPIFailed("pyannote", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return apperrors.ErrExternalAPIFailed("pyannote",
				fmt.Errorf("healthcheck status %d from %s", resp.StatusCode, e.baseURL))
		}
	}
	return nil
}
