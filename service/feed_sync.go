package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/repository"
)

// feedSyncService fans out over all due feeds with bounded concurrency.
// One bad feed never aborts the run; its failure lands in the counters and
// in its own health record.
type feedSyncService struct {
	feedRepo    repository.FeedRepository
	articleRepo repository.ArticleRepository
	fetcher     FeedFetcherService
	health      FeedHealthService
	cfg         config.FetchConfig
	logger      *slog.Logger
}

// NewFeedSyncService creates a new feed sync service.
func NewFeedSyncService(
	feedRepo repository.FeedRepository,
	articleRepo repository.ArticleRepository,
	fetcher FeedFetcherService,
	health FeedHealthService,
	cfg config.FetchConfig,
	logger *slog.Logger,
) FeedSyncService {
	return &feedSyncService{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		fetcher:     fetcher,
		health:      health,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *feedSyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	feeds, err := s.feedRepo.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list due feeds", "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "starting feed sync", "due_feeds", len(feeds))

	var processed, failed, fetched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			inserted, syncErr := s.syncFeed(gctx, feed)
			processed.Add(1)
			fetched.Add(inserted)
			if syncErr != nil {
				failed.Add(1)
			}
			// Per-feed failures are recorded, not propagated, so the rest of
			// the run keeps going.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SyncResult{
		FeedsProcessed:  int(processed.Load()),
		FeedsFailed:     int(failed.Load()),
		ArticlesFetched: fetched.Load(),
	}

	s.logger.InfoContext(ctx, "feed sync finished",
		"processed", result.FeedsProcessed,
		"failed", result.FeedsFailed,
		"articles", result.ArticlesFetched)

	return result, nil
}

func (s *feedSyncService) SyncOne(ctx context.Context, feedID string) (*SyncResult, error) {
	feed, err := s.feedRepo.GetByID(ctx, feedID)
	if err != nil {
		return nil, err
	}

	inserted, syncErr := s.syncFeed(ctx, feed)

	result := &SyncResult{FeedsProcessed: 1, ArticlesFetched: inserted}
	if syncErr != nil {
		result.FeedsFailed = 1
	}

	return result, nil
}

// syncFeed runs the fetch, stores the new articles and folds the outcome
// into the feed's health record. The returned error is the fetch or insert
// failure, already accounted for in health.
func (s *feedSyncService) syncFeed(ctx context.Context, feed *domain.Feed) (int64, error) {
	outcome := s.fetcher.Fetch(ctx, feed)

	var inserted int64
	if outcome.Err == nil && len(outcome.Articles) > 0 {
		var err error
		inserted, err = s.articleRepo.InsertBatch(ctx, outcome.Articles)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to insert articles",
				"feed_id", feed.ID, "error", err)
			outcome = &FetchOutcome{Transient: true, Err: err}
		}
	}

	if _, err := s.health.Apply(ctx, feed, outcome, inserted); err != nil {
		s.logger.ErrorContext(ctx, "failed to apply fetch outcome",
			"feed_id", feed.ID, "error", err)
		return inserted, err
	}

	return inserted, outcome.Err
}
