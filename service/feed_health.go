// ABOUTME: This file owns the feed health state machine and fetch scheduling
// ABOUTME: Folds fetch outcomes into feeds and derives the next fetch delay
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/repository"
)

type feedHealthService struct {
	feedRepo repository.FeedRepository
	cfg      config.HealthConfig
	logger   *slog.Logger
}

// NewFeedHealthService creates a new feed health service.
func NewFeedHealthService(feedRepo repository.FeedRepository, cfg config.HealthConfig, logger *slog.Logger) FeedHealthService {
	return &feedHealthService{
		feedRepo: feedRepo,
		cfg:      cfg,
		logger:   logger,
	}
}

// Apply folds one fetch outcome into the feed, persists the new fetch
// bookkeeping and returns the delay until the feed comes due again.
// Healthy feeds come due after the base interval; failing feeds back off
// exponentially with the consecutive failure count, capped at BackoffMax.
func (s *feedHealthService) Apply(ctx context.Context, feed *domain.Feed, outcome *FetchOutcome, inserted int64) (time.Duration, error) {
	now := time.Now()
	feed.LastFetchAt = &now

	var delay time.Duration

	if outcome.Err == nil {
		feed.LastFetchStatus = domain.FetchStatusSuccess
		feed.LastFetchError = nil
		feed.LastSuccessfulFetchAt = &now
		feed.ConsecutiveFailures = 0
		feed.TotalArticlesCount += int(inserted)
		delay = s.cfg.BackoffBase
	} else {
		feed.LastFetchStatus = domain.FetchStatusFailure
		msg := outcome.Err.Error()
		feed.LastFetchError = &msg
		feed.ConsecutiveFailures++
		delay = s.backoffDelay(feed.ConsecutiveFailures)

		state := feed.HealthState(s.cfg.DegradedThreshold, s.cfg.FailingThreshold)
		s.logger.WarnContext(ctx, "feed fetch failure recorded",
			"feed_id", feed.ID,
			"consecutive_failures", feed.ConsecutiveFailures,
			"health", state,
			"next_fetch_in", delay,
			"transient", outcome.Transient)
	}

	if err := s.feedRepo.UpdateFetchState(ctx, feed, now.Add(delay)); err != nil {
		return 0, fmt.Errorf("failed to persist fetch state for feed %s: %w", feed.ID, err)
	}

	return delay, nil
}

// backoffDelay doubles the base delay per consecutive failure, capped at
// BackoffMax.
func (s *feedHealthService) backoffDelay(failures int) time.Duration {
	delay := s.cfg.BackoffBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= s.cfg.BackoffMax {
			return s.cfg.BackoffMax
		}
	}
	if delay > s.cfg.BackoffMax {
		return s.cfg.BackoffMax
	}
	return delay
}

func (s *feedHealthService) Snapshot(ctx context.Context) ([]*FeedHealth, error) {
	feeds, err := s.feedRepo.List(ctx, false)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list feeds for health snapshot", "error", err)
		return nil, err
	}

	snapshot := make([]*FeedHealth, 0, len(feeds))
	for _, feed := range feeds {
		snapshot = append(snapshot, &FeedHealth{
			Feed:  feed,
			State: feed.HealthState(s.cfg.DegradedThreshold, s.cfg.FailingThreshold),
		})
	}

	return snapshot, nil
}
