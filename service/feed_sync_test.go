package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/domain"
	"rss-digest/utils/logger"
)

type fakeHealth struct {
	mu      sync.Mutex
	applied []appliedOutcome
	err     error
}

type appliedOutcome struct {
	feedID   string
	failed   bool
	inserted int64
}

func (h *fakeHealth) Apply(ctx context.Context, feed *domain.Feed, outcome *FetchOutcome, inserted int64) (time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applied = append(h.applied, appliedOutcome{feedID: feed.ID, failed: outcome.Err != nil, inserted: inserted})
	return time.Minute, h.err
}

func (h *fakeHealth) Snapshot(ctx context.Context) ([]*FeedHealth, error) {
	return nil, nil
}

func TestFeedSyncService_SyncAll(t *testing.T) {
	t.Run("should fetch, store and record health for every due feed", func(t *testing.T) {
		feedRepo := newFakeFeedRepo(
			&domain.Feed{ID: "feed-1", URL: "https://a.example.com/rss", IsActive: true},
			&domain.Feed{ID: "feed-2", URL: "https://b.example.com/rss", IsActive: true},
			&domain.Feed{ID: "feed-3", URL: "https://c.example.com/rss", IsActive: true},
		)
		articleRepo := &fakeArticleRepo{}
		fetcher := &fakeFetcher{outcomes: map[string]*FetchOutcome{
			"feed-1": {Articles: []*domain.Article{{Link: "https://a.example.com/1"}, {Link: "https://a.example.com/2"}}},
			"feed-2": {Transient: true, Err: errors.New("timeout")},
			"feed-3": {Articles: []*domain.Article{{Link: "https://c.example.com/1"}}},
		}}
		health := &fakeHealth{}

		svc := NewFeedSyncService(feedRepo, articleRepo, fetcher, health, fetchTestConfig(), logger.Logger)

		result, err := svc.SyncAll(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, result.FeedsProcessed)
		assert.Equal(t, 1, result.FeedsFailed)
		assert.Equal(t, int64(3), result.ArticlesFetched)

		// Health is recorded for failures too.
		assert.Len(t, health.applied, 3)
	})

	t.Run("should treat insert failures as feed failures", func(t *testing.T) {
		feedRepo := newFakeFeedRepo(&domain.Feed{ID: "feed-1", URL: "https://a.example.com/rss", IsActive: true})
		articleRepo := &fakeArticleRepo{insertErr: errors.New("unique violation storm")}
		fetcher := &fakeFetcher{outcomes: map[string]*FetchOutcome{
			"feed-1": {Articles: []*domain.Article{{Link: "https://a.example.com/1"}}},
		}}
		health := &fakeHealth{}

		svc := NewFeedSyncService(feedRepo, articleRepo, fetcher, health, fetchTestConfig(), logger.Logger)

		result, err := svc.SyncAll(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.FeedsFailed)
		assert.Equal(t, int64(0), result.ArticlesFetched)
		require.Len(t, health.applied, 1)
		assert.True(t, health.applied[0].failed)
	})

	t.Run("should surface the list error", func(t *testing.T) {
		feedRepo := newFakeFeedRepo()
		feedRepo.listErr = errors.New("database down")

		svc := NewFeedSyncService(feedRepo, &fakeArticleRepo{}, &fakeFetcher{}, &fakeHealth{}, fetchTestConfig(), logger.Logger)

		_, err := svc.SyncAll(context.Background())
		assert.Error(t, err)
	})
}

func TestFeedSyncService_SyncOne(t *testing.T) {
	t.Run("should sync a single feed by id", func(t *testing.T) {
		feedRepo := newFakeFeedRepo(&domain.Feed{ID: "feed-1", URL: "https://a.example.com/rss", IsActive: true})
		articleRepo := &fakeArticleRepo{}
		fetcher := &fakeFetcher{outcomes: map[string]*FetchOutcome{
			"feed-1": {Articles: []*domain.Article{{Link: "https://a.example.com/1"}}},
		}}

		svc := NewFeedSyncService(feedRepo, articleRepo, fetcher, &fakeHealth{}, fetchTestConfig(), logger.Logger)

		result, err := svc.SyncOne(context.Background(), "feed-1")
		require.NoError(t, err)

		assert.Equal(t, 1, result.FeedsProcessed)
		assert.Equal(t, 0, result.FeedsFailed)
		assert.Equal(t, int64(1), result.ArticlesFetched)
	})

	t.Run("should return not found for an unknown feed", func(t *testing.T) {
		svc := NewFeedSyncService(newFakeFeedRepo(), &fakeArticleRepo{}, &fakeFetcher{}, &fakeHealth{}, fetchTestConfig(), logger.Logger)

		_, err := svc.SyncOne(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrFeedNotFound)
	})
}
