package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	dto "github.com/johnquangdev/holo-archive/internal/adapter/dto/search"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/cache"
	"github.com/johnquangdev/holo-archive/internal/storage"
	searchuc "github.com/johnquangdev/holo-archive/internal/usecase/search"
)

// Search handles subtitle search HTTP requests
type Search struct {
	service  *searchuc.Service
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSearch creates a new search handler. cache may be nil to disable
// response caching.
func NewSearch(service *searchuc.Service, cache cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Search {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Search{service: service, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Handle runs a search across all archived subtitles
// GET /v1/search
func (h *Search) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	key, err := h.cacheKey(req)
	if err == nil && h.cache != nil {
		if body, ok := h.cacheGet(ctx, key); ok {
			return c.JSONBlob(http.StatusOK, body)
		}
	}

	results, err := h.service.Search(ctx, searchuc.Params{
		Value:           req.Query,
		Regex:           req.Regex,
		CaseSensitive:   req.CaseSensitive,
		VideoFilters:    req.VideoFilters,
		SubtitleFilters: req.SubtitleFilters,
		TimeBefore:      req.TimeBefore,
		TimeAfter:       req.TimeAfter,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrorCode_FILTER_INVALID) ||
			apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "Invalid search request",
				"details": err.Error(),
			})
		}
		h.logger.Error("search failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Search failed",
		})
	}

	resp := dto.Response{Query: req.Query, Count: len(results), Results: results}
	if h.cache != nil {
		h.cacheSet(ctx, key, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Search) cacheKey(req dto.Request) (string, error) {
	checksum, err := storage.BuildChecksum(
		req.Query,
		req.Regex,
		req.CaseSensitive,
		strings.Join(req.VideoFilters, "\x00"),
		strings.Join(req.SubtitleFilters, "\x00"),
		req.TimeBefore,
		req.TimeAfter,
	)
	if err != nil {
		return "", err
	}
	return "search:" + checksum, nil
}

func (h *Search) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var resp dto.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, false
	}
	resp.Cached = true
	blob, err := json.Marshal(resp)
	if err != nil {
		return nil, false
	}
	return blob, true
}

func (h *Search) cacheSet(ctx context.Context, key string, resp dto.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, string(body), h.cacheTTL); err != nil {
		h.logger.Warn("cache write failed", zap.Error(err))
	}
}
