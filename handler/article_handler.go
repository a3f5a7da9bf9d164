package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rss-digest/domain"
	"rss-digest/repository"
)

// ArticleResponse is the API shape of a harvested article.
type ArticleResponse struct {
	ID            string    `json:"id"`
	FeedID        string    `json:"feed_id"`
	FeedTitle     string    `json:"feed_title"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	Link          string    `json:"link"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	PublishedDate time.Time `json:"published_date"`
	Status        string    `json:"status"`
}

// ArticleHandler handles article listing requests.
type ArticleHandler struct {
	articleRepo repository.ArticleRepository
	logger      *slog.Logger
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(articleRepo repository.ArticleRepository, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		articleRepo: articleRepo,
		logger:      logger,
	}
}

// List handles GET /v1/articles. The window defaults to the last 24 hours;
// from/to accept YYYY-MM-DD dates, to being exclusive. feed_id, status and
// title query parameters narrow the result.
func (h *ArticleHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	to := time.Now()
	from := to.AddDate(0, 0, -1)

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "from must be a YYYY-MM-DD date")
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "to must be a YYYY-MM-DD date")
		}
		to = parsed
	}
	if !from.Before(to) {
		return respondError(c, http.StatusBadRequest, "from must be before to")
	}

	var filter *repository.ArticleFilter
	feedID := c.QueryParam("feed_id")
	status := domain.ArticleStatus(c.QueryParam("status"))
	title := c.QueryParam("title")

	if status != "" && status != domain.ArticleStatusNew && status != domain.ArticleStatusProcessed {
		return respondError(c, http.StatusBadRequest, "unknown article status")
	}
	if feedID != "" || status != "" || title != "" {
		filter = &repository.ArticleFilter{FeedID: feedID, Status: status, Title: title}
	}

	articles, err := h.articleRepo.ListByDateRange(ctx, from, to, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list articles", "error", err)
		return respondDomainError(c, err)
	}

	page, perPage := pageParams(c)
	pageArticles := paginate(articles, page, perPage)

	responses := make([]*ArticleResponse, 0, len(pageArticles))
	for _, article := range pageArticles {
		responses = append(responses, toArticleResponse(article))
	}

	return respondOK(c, map[string]any{
		"articles":   responses,
		"pagination": Pagination{Page: page, PerPage: perPage, Count: len(articles)},
	})
}

func toArticleResponse(article *domain.ArticleWithFeed) *ArticleResponse {
	return &ArticleResponse{
		ID:            article.ID,
		FeedID:        article.FeedID,
		FeedTitle:     article.FeedTitle,
		Title:         article.Title,
		Summary:       article.Summary,
		Link:          article.Link,
		ThumbnailURL:  article.ThumbnailURL,
		PublishedDate: article.PublishedDate,
		Status:        string(article.Status),
	}
}
