package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/utils/logger"
)

func vectorTestConfig() config.VectorStoreConfig {
	return config.VectorStoreConfig{}
}

func digestTestArticles() []*domain.ArticleWithFeed {
	return []*domain.ArticleWithFeed{
		{Article: domain.Article{ID: "a1", FeedID: "feed-1", Title: "Postgres at scale", Summary: "Sharding notes."}, FeedTitle: "Engineering Blog"},
		{Article: domain.Article{ID: "a2", FeedID: "feed-1", Title: "Go generics in practice", Summary: "A year in."}, FeedTitle: "Engineering Blog"},
		{Article: domain.Article{ID: "a3", FeedID: "feed-2", Title: "Rate limiting strategies", Summary: "Token buckets."}, FeedTitle: "SRE Weekly"},
	}
}

func newTestOrchestrator(digestRepo *fakeDigestRepo, articleRepo *fakeArticleRepo, summarizer *fakeSummarizer) DigestOrchestratorService {
	return NewDigestOrchestrator(
		digestRepo,
		articleRepo,
		summarizer,
		&fakeGateway{},
		nil,
		digestTestConfig(),
		vectorTestConfig(),
		logger.Logger,
	)
}

func TestDigestOrchestrator_Generate(t *testing.T) {
	date := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)

	t.Run("should build and persist a digest", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		articleRepo := &fakeArticleRepo{articles: digestTestArticles()}
		svc := newTestOrchestrator(digestRepo, articleRepo, &fakeSummarizer{})

		digest, err := svc.Generate(context.Background(), GenerateRequest{UserID: "user-1", Date: date})
		require.NoError(t, err)

		assert.Equal(t, 1, digestRepo.createDigestCalls)
		assert.Equal(t, "2026-08-28 reading digest", digest.Title)
		assert.Equal(t, 3, digest.ArticleCount)
		assert.Equal(t, domain.DigestTypeDaily, digest.DigestType)
		assert.Equal(t, domain.DigestStatusPublished, digest.Status)
		// The source date is normalized to midnight.
		assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), digest.SourceDate)

		assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, articleRepo.processedIDs)
	})

	t.Run("should return the existing digest without rebuilding", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		articleRepo := &fakeArticleRepo{articles: digestTestArticles()}
		summarizer := &fakeSummarizer{}
		svc := newTestOrchestrator(digestRepo, articleRepo, summarizer)

		first, err := svc.Generate(context.Background(), GenerateRequest{Date: date})
		require.NoError(t, err)

		second, err := svc.Generate(context.Background(), GenerateRequest{Date: date})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, digestRepo.createDigestCalls)
		assert.Equal(t, 1, summarizer.calls)
	})

	t.Run("should rebuild when forced", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		articleRepo := &fakeArticleRepo{articles: digestTestArticles()}
		svc := newTestOrchestrator(digestRepo, articleRepo, &fakeSummarizer{})

		first, err := svc.Generate(context.Background(), GenerateRequest{Date: date})
		require.NoError(t, err)

		second, err := svc.Generate(context.Background(), GenerateRequest{Date: date, Force: true})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 2, digestRepo.createDigestCalls)
		assert.Equal(t, []string{first.ID}, digestRepo.deletedDigestIDs)
	})

	t.Run("should collapse concurrent generates into one build", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		articleRepo := &fakeArticleRepo{articles: digestTestArticles()}
		summarizer := &fakeSummarizer{delay: 100 * time.Millisecond}
		svc := newTestOrchestrator(digestRepo, articleRepo, summarizer)

		const callers = 8
		results := make([]*domain.Digest, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Generate(context.Background(), GenerateRequest{Date: date})
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, digestRepo.createDigestCalls)
		assert.Equal(t, 1, summarizer.calls)
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].ID, results[i].ID)
		}
	})

	t.Run("should report no articles without writing a record", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		articleRepo := &fakeArticleRepo{}
		svc := newTestOrchestrator(digestRepo, articleRepo, &fakeSummarizer{})

		_, err := svc.Generate(context.Background(), GenerateRequest{Date: date})

		assert.ErrorIs(t, err, domain.ErrNoArticles)
		assert.Equal(t, 0, digestRepo.createDigestCalls)
	})

	t.Run("should apply the rule's feed and keyword filters", func(t *testing.T) {
		digestRepo := newFakeDigestRepo()
		rule := &domain.DigestRule{
			ID:         "rule-1",
			Name:       "postgres only",
			DigestType: domain.DigestTypeDaily,
			FeedIDs:    []string{"feed-1"},
			Keywords:   []string{"postgres"},
			IsActive:   true,
		}
		require.NoError(t, digestRepo.CreateRule(context.Background(), rule))

		articleRepo := &fakeArticleRepo{articles: digestTestArticles()}
		svc := newTestOrchestrator(digestRepo, articleRepo, &fakeSummarizer{})

		digest, err := svc.Generate(context.Background(), GenerateRequest{Date: date, RuleID: "rule-1"})
		require.NoError(t, err)

		assert.Equal(t, 1, digest.ArticleCount)
		assert.Equal(t, "rule-1", digest.RuleID)
		assert.Equal(t, []string{"a1"}, articleRepo.processedIDs)
	})

	t.Run("should fail for an unknown rule", func(t *testing.T) {
		svc := newTestOrchestrator(newFakeDigestRepo(), &fakeArticleRepo{articles: digestTestArticles()}, &fakeSummarizer{})

		_, err := svc.Generate(context.Background(), GenerateRequest{Date: date, RuleID: "missing"})
		assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	})

	t.Run("should cap articles per feed", func(t *testing.T) {
		var articles []*domain.ArticleWithFeed
		for i := 0; i < 15; i++ {
			articles = append(articles, &domain.ArticleWithFeed{
				Article:   domain.Article{ID: string(rune('a' + i)), FeedID: "feed-1", Title: "item"},
				FeedTitle: "Engineering Blog",
			})
		}

		digestRepo := newFakeDigestRepo()
		svc := newTestOrchestrator(digestRepo, &fakeArticleRepo{articles: articles}, &fakeSummarizer{})

		digest, err := svc.Generate(context.Background(), GenerateRequest{Date: date})
		require.NoError(t, err)

		assert.Equal(t, 10, digest.ArticleCount)
	})
}
