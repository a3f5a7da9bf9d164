package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	rssFeed "github.com/mmcdole/gofeed"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/utils"
)

// feedFetcherService downloads one feed and normalizes its items into
// articles. Failures are classified so the health tracker can tell a flaky
// host apart from a dead feed.
type feedFetcherService struct {
	cfg         config.FetchConfig
	hostLimiter *utils.HostRateLimiter
	httpClient  *http.Client
	sanitizer   *bluemonday.Policy
	logger      *slog.Logger
}

// NewFeedFetcherService creates a new feed fetcher service.
func NewFeedFetcherService(cfg config.FetchConfig, hostLimiter *utils.HostRateLimiter, logger *slog.Logger) FeedFetcherService {
	return &feedFetcherService{
		cfg:         cfg,
		hostLimiter: hostLimiter,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger,
	}
}

func (s *feedFetcherService) Fetch(ctx context.Context, feed *domain.Feed) *FetchOutcome {
	if _, err := url.ParseRequestURI(feed.URL); err != nil {
		return &FetchOutcome{Transient: false, Err: err}
	}

	if s.hostLimiter != nil {
		if err := s.hostLimiter.WaitForHost(ctx, feed.URL); err != nil {
			// Waiting only fails when the context dies; the feed itself is fine.
			return &FetchOutcome{Transient: true, Err: err}
		}
	}

	parser := rssFeed.NewParser()
	parser.Client = s.httpClient
	parser.UserAgent = s.cfg.UserAgent

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		transient := isTransientFetchError(err)
		s.logger.ErrorContext(ctx, "feed fetch failed",
			"feed_id", feed.ID, "url", feed.URL, "transient", transient, "error", err)
		return &FetchOutcome{Transient: transient, Err: err}
	}

	articles := s.normalizeItems(feed, parsed)
	s.logger.InfoContext(ctx, "feed fetched",
		"feed_id", feed.ID, "title", parsed.Title, "items", len(articles))

	return &FetchOutcome{Articles: articles}
}

func (s *feedFetcherService) normalizeItems(feed *domain.Feed, parsed *rssFeed.Feed) []*domain.Article {
	articles := make([]*domain.Article, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		if len(articles) >= s.cfg.MaxItemsPerRun {
			break
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		article := &domain.Article{
			FeedID:        feed.ID,
			Title:         strings.TrimSpace(s.sanitizer.Sanitize(item.Title)),
			Summary:       strings.TrimSpace(s.sanitizer.Sanitize(summary)),
			Link:          link,
			PublishedDate: published,
			Status:        domain.ArticleStatusNew,
		}
		if item.Image != nil {
			article.ThumbnailURL = item.Image.URL
		}

		articles = append(articles, article)
	}

	return articles
}

// isTransientFetchError reports whether a fetch failure is worth retrying
// on the normal schedule. Server-side hiccups and network trouble are
// transient; 4xx responses and malformed XML are not.
func isTransientFetchError(err error) bool {
	var httpErr rssFeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
