// ABOUTME: This file handles feed CRUD, manual sync triggers and feed health
// ABOUTME: Feed health is derived from consecutive failure counts, never stored
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"rss-digest/domain"
	"rss-digest/repository"
	"rss-digest/service"
)

// FeedRequest is the request body for creating and updating feeds.
type FeedRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	CategoryID  *int64 `json:"category_id"`
	IsActive    *bool  `json:"is_active"`
}

// FeedResponse is the API shape of a feed, fetch bookkeeping included.
type FeedResponse struct {
	ID                  string             `json:"id"`
	URL                 string             `json:"url"`
	Title               string             `json:"title"`
	Description         string             `json:"description,omitempty"`
	Logo                string             `json:"logo,omitempty"`
	CategoryID          *int64             `json:"category_id,omitempty"`
	IsActive            bool               `json:"is_active"`
	Health              domain.HealthState `json:"health"`
	LastFetchAt         *time.Time         `json:"last_fetch_at,omitempty"`
	LastFetchStatus     domain.FetchStatus `json:"last_fetch_status"`
	LastFetchError      *string            `json:"last_fetch_error,omitempty"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	TotalArticlesCount  int                `json:"total_articles_count"`
	CreatedAt           time.Time          `json:"created_at"`
}

// FeedHandler handles feed management requests.
type FeedHandler struct {
	feedRepo  repository.FeedRepository
	syncSvc   service.FeedSyncService
	healthSvc service.FeedHealthService
	degraded  int
	failing   int
	logger    *slog.Logger
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feedRepo repository.FeedRepository, syncSvc service.FeedSyncService, healthSvc service.FeedHealthService, degraded, failing int, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feedRepo:  feedRepo,
		syncSvc:   syncSvc,
		healthSvc: healthSvc,
		degraded:  degraded,
		failing:   failing,
		logger:    logger,
	}
}

// Create handles POST /v1/feeds.
func (h *FeedHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req FeedRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}
	if err := validateFeedURL(req.URL); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	if _, err := h.feedRepo.GetByURL(ctx, req.URL); err == nil {
		return respondError(c, http.StatusConflict, "feed with this URL already exists")
	}

	feed := &domain.Feed{
		URL:             req.URL,
		Title:           req.Title,
		Description:     req.Description,
		Logo:            req.Logo,
		CategoryID:      req.CategoryID,
		IsActive:        true,
		LastFetchStatus: domain.FetchStatusPending,
	}
	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}

	if err := h.feedRepo.Create(ctx, feed); err != nil {
		h.logger.ErrorContext(ctx, "failed to create feed", "url", req.URL, "error", err)
		return respondDomainError(c, err)
	}

	return respondCreated(c, h.toResponse(feed))
}

// List handles GET /v1/feeds.
func (h *FeedHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	activeOnly := c.QueryParam("active") == "true"

	feeds, err := h.feedRepo.List(ctx, activeOnly)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list feeds", "error", err)
		return respondDomainError(c, err)
	}

	page, perPage := pageParams(c)
	pageFeeds := paginate(feeds, page, perPage)

	responses := make([]*FeedResponse, 0, len(pageFeeds))
	for _, feed := range pageFeeds {
		responses = append(responses, h.toResponse(feed))
	}

	return respondOK(c, map[string]any{
		"feeds":      responses,
		"pagination": Pagination{Page: page, PerPage: perPage, Count: len(feeds)},
	})
}

// Get handles GET /v1/feeds/:id.
func (h *FeedHandler) Get(c echo.Context) error {
	feed, err := h.feedRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, h.toResponse(feed))
}

// Update handles PUT /v1/feeds/:id.
func (h *FeedHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	feed, err := h.feedRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}

	var req FeedRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request format")
	}

	if req.URL != "" {
		if err := validateFeedURL(req.URL); err != nil {
			return respondError(c, http.StatusBadRequest, err.Error())
		}
		feed.URL = req.URL
	}
	if req.Title != "" {
		feed.Title = req.Title
	}
	if req.Description != "" {
		feed.Description = req.Description
	}
	if req.Logo != "" {
		feed.Logo = req.Logo
	}
	if req.CategoryID != nil {
		feed.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}

	if err := h.feedRepo.Update(ctx, feed); err != nil {
		h.logger.ErrorContext(ctx, "failed to update feed", "feed_id", feed.ID, "error", err)
		return respondDomainError(c, err)
	}

	return respondOK(c, h.toResponse(feed))
}

// Delete handles DELETE /v1/feeds/:id.
func (h *FeedHandler) Delete(c echo.Context) error {
	if err := h.feedRepo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, nil)
}

// SyncAll handles POST /v1/feeds/sync.
func (h *FeedHandler) SyncAll(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.syncSvc.SyncAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "feed sync failed", "error", err)
		return respondDomainError(c, err)
	}

	return respondOK(c, result)
}

// SyncOne handles POST /v1/feeds/:id/fetch.
func (h *FeedHandler) SyncOne(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.syncSvc.SyncOne(ctx, c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, result)
}

// Health handles GET /v1/feeds/health.
func (h *FeedHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	snapshot, err := h.healthSvc.Snapshot(ctx)
	if err != nil {
		return respondDomainError(c, err)
	}

	type entry struct {
		FeedID              string             `json:"feed_id"`
		Title               string             `json:"title"`
		Health              domain.HealthState `json:"health"`
		ConsecutiveFailures int                `json:"consecutive_failures"`
		LastFetchError      *string            `json:"last_fetch_error,omitempty"`
		LastSuccessfulFetch *time.Time         `json:"last_successful_fetch_at,omitempty"`
	}

	entries := make([]entry, 0, len(snapshot))
	counts := map[domain.HealthState]int{}
	for _, fh := range snapshot {
		counts[fh.State]++
		entries = append(entries, entry{
			FeedID:              fh.Feed.ID,
			Title:               fh.Feed.Title,
			Health:              fh.State,
			ConsecutiveFailures: fh.Feed.ConsecutiveFailures,
			LastFetchError:      fh.Feed.LastFetchError,
			LastSuccessfulFetch: fh.Feed.LastSuccessfulFetchAt,
		})
	}

	return respondOK(c, map[string]any{
		"feeds": entries,
		"summary": map[string]int{
			"healthy":  counts[domain.HealthHealthy],
			"degraded": counts[domain.HealthDegraded],
			"failing":  counts[domain.HealthFailing],
		},
	})
}

func (h *FeedHandler) toResponse(feed *domain.Feed) *FeedResponse {
	return &FeedResponse{
		ID:                  feed.ID,
		URL:                 feed.URL,
		Title:               feed.Title,
		Description:         feed.Description,
		Logo:                feed.Logo,
		CategoryID:          feed.CategoryID,
		IsActive:            feed.IsActive,
		Health:              feed.HealthState(h.degraded, h.failing),
		LastFetchAt:         feed.LastFetchAt,
		LastFetchStatus:     feed.LastFetchStatus,
		LastFetchError:      feed.LastFetchError,
		ConsecutiveFailures: feed.ConsecutiveFailures,
		TotalArticlesCount:  feed.TotalArticlesCount,
		CreatedAt:           feed.CreatedAt,
	}
}

func validateFeedURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be a valid http(s) URL")
	}
	return nil
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
