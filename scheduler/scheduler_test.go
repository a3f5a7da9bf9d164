package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/repository"
	"rss-digest/service"
	"rss-digest/utils/logger"
)

type fakeOrchestrator struct {
	mu       sync.Mutex
	requests []service.GenerateRequest
	err      error
}

func (f *fakeOrchestrator) Generate(ctx context.Context, req service.GenerateRequest) (*domain.Digest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Digest{ID: "digest-1", ArticleCount: 3}, nil
}

// ruleLister stubs only the rule listing; the scheduler touches nothing
// else on the digest repository.
type ruleLister struct {
	repository.DigestRepository
	rules []*domain.DigestRule
}

func (r *ruleLister) ListRules(ctx context.Context, activeOnly bool) ([]*domain.DigestRule, error) {
	return r.rules, nil
}

func schedulerTestConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:    true,
		FetchSpec:  "*/30 * * * *",
		DigestSpec: "0 6 * * *",
	}
}

func TestScheduler_RunDigests(t *testing.T) {
	t.Run("should build one digest per active rule", func(t *testing.T) {
		orch := &fakeOrchestrator{}
		repo := &ruleLister{rules: []*domain.DigestRule{
			{ID: "rule-1", IsActive: true},
			{ID: "rule-2", IsActive: true},
		}}

		s := New(schedulerTestConfig(), nil, orch, repo, logger.Logger)
		s.runDigests(context.Background())

		require.Len(t, orch.requests, 2)
		assert.Equal(t, "rule-1", orch.requests[0].RuleID)
		assert.Equal(t, "rule-2", orch.requests[1].RuleID)

		yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		assert.Equal(t, yesterday, orch.requests[0].Date.Format("2006-01-02"))
	})

	t.Run("should fall back to the default rule when none are configured", func(t *testing.T) {
		orch := &fakeOrchestrator{}
		s := New(schedulerTestConfig(), nil, orch, &ruleLister{}, logger.Logger)

		s.runDigests(context.Background())

		require.Len(t, orch.requests, 1)
		assert.Empty(t, orch.requests[0].RuleID)
	})

	t.Run("should keep going when one rule fails", func(t *testing.T) {
		orch := &fakeOrchestrator{err: domain.ErrNoArticles}
		repo := &ruleLister{rules: []*domain.DigestRule{
			{ID: "rule-1", IsActive: true},
			{ID: "rule-2", IsActive: true},
		}}

		s := New(schedulerTestConfig(), nil, orch, repo, logger.Logger)
		s.runDigests(context.Background())

		assert.Len(t, orch.requests, 2)
	})
}

func TestScheduler_Start(t *testing.T) {
	t.Run("should reject an invalid cron spec", func(t *testing.T) {
		cfg := schedulerTestConfig()
		cfg.FetchSpec = "not a spec"

		s := New(cfg, nil, &fakeOrchestrator{}, &ruleLister{}, logger.Logger)
		err := s.Start(context.Background())

		assert.Error(t, err)
	})

	t.Run("should be a no-op when disabled", func(t *testing.T) {
		cfg := schedulerTestConfig()
		cfg.Enabled = false

		s := New(cfg, nil, &fakeOrchestrator{}, &ruleLister{}, logger.Logger)
		require.NoError(t, s.Start(context.Background()))
		s.Stop()
	})
}
