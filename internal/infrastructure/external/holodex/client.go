// Package holodex is a minimal client for the Holodex v2 API, used to
// discover channels and their videos.
package holodex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

const pageLimit = 50

// Channel is one Holodex channel with the raw API payload preserved for
// storage.
type Channel struct {
	ID  string
	Raw json.RawMessage
}

// Video is one Holodex video with the raw API payload preserved for storage.
type Video struct {
	ID      string
	Channel *Channel
	Raw     json.RawMessage
}

// Client wraps the Holodex API with rate limiting and bounded parallelism.
// Holodex enforces strict request quotas, exceeding them returns HTTP 429.
type Client struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	sem     chan struct{}
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a Holodex client from configuration.
func NewClient(cfg *config.HolodexConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		sem:     make(chan struct{}, parallelism),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var raw json.RawMessage
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set("X-APIKEY", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			raw = body
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Info("holodex rate limited, backing off", zap.String("path", path))
			return fmt.Errorf("holodex status 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("holodex status %d: %s", resp.StatusCode, body))
		default:
			return fmt.Errorf("holodex status %d: %s", resp.StatusCode, body)
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 2 * time.Second
	expBackoff.MaxElapsedTime = 4 * time.Minute

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, apperrors.ErrExternalAPIFailed("holodex", err)
	}
	return raw, nil
}

// Channel fetches full channel info.
func (c *Client) Channel(ctx context.Context, id string) (*Channel, error) {
	raw, err := c.get(ctx, "channels/"+id, nil)
	if err != nil {
		return nil, err
	}
	channel, err := parseChannel(raw)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// OrgChannels pages through every VTuber channel of an organization and
// fetches full info for each. The list endpoint only returns trimmed channel
// objects, so each channel costs one extra request.
func (c *Client) OrgChannels(ctx context.Context, org string) ([]*Channel, error) {
	var channels []*Channel

	offset := 0
	for {
		query := url.Values{
			"type":   {"vtuber"},
			"org":    {org},
			"limit":  {strconv.Itoa(pageLimit)},
			"offset": {strconv.Itoa(offset)},
		}
		raw, err := c.get(ctx, "channels", query)
		if err != nil {
			return nil, err
		}

		var page []json.RawMessage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, apperrors.ErrExternalAPIFailed("holodex", err)
		}

		for _, item := range page {
			lite, err := parseChannel(item)
			if err != nil {
				return nil, err
			}
			full, err := c.Channel(ctx, lite.ID)
			if err != nil {
				return nil, err
			}
			channels = append(channels, full)
		}

		offset += len(page)
		if len(page) < pageLimit {
			break
		}
	}

	return channels, nil
}

// ChannelVideos pages through a channel's own videos and its collabs,
// mentions included, so videos featuring the channel are discovered too.
func (c *Client) ChannelVideos(ctx context.Context, channelID string) ([]*Video, error) {
	var videos []*Video

	for _, videoType := range []string{"videos", "collabs"} {
		offset := 0
		for {
			query := url.Values{
				"include": {"mentions,description"},
				"limit":   {strconv.Itoa(pageLimit)},
				"offset":  {strconv.Itoa(offset)},
			}
			raw, err := c.get(ctx, "channels/"+channelID+"/"+videoType, query)
			if err != nil {
				return nil, err
			}

			var page []json.RawMessage
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, apperrors.ErrExternalAPIFailed("holodex", err)
			}

			for _, item := range page {
				video, err := parseVideo(item)
				if err != nil {
					return nil, err
				}
				videos = append(videos, video)
			}

			offset += len(page)
			if len(page) < pageLimit {
				break
			}
		}
	}

	return videos, nil
}

func parseChannel(raw json.RawMessage) (*Channel, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, apperrors.ErrExternalAPIFailed("holodex", err)
	}
	if probe.ID == "" {
		return nil, apperrors.ErrExternalAPIFailed("holodex", fmt.Errorf("channel payload without id"))
	}
	return &Channel{ID: probe.ID, Raw: raw}, nil
}

func parseVideo(raw json.RawMessage) (*Video, error) {
	var probe struct {
		ID      string `json:"id"`
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, apperrors.ErrExternalAPIFailed("holodex", err)
	}
	if probe.ID == "" {
		return nil, apperrors.ErrExternalAPIFailed("holodex", fmt.Errorf("video payload without id"))
	}

	video := &Video{ID: probe.ID, Raw: raw}
	if probe.Channel.ID != "" {
		var channelProbe struct {
			Channel json.RawMessage `json:"channel"`
		}
		_ = json.Unmarshal(raw, &channelProbe)
		video.Channel = &Channel{ID: probe.Channel.ID, Raw: channelProbe.Channel}
	}
	return video, nil
}
