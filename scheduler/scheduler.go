// ABOUTME: This file runs the periodic feed sync and digest builds on cron specs
// ABOUTME: Digest runs cover yesterday for every active rule, default rule included
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/repository"
	"rss-digest/service"
)

// Scheduler drives the background jobs. Start is non-blocking; Stop waits
// for running jobs to finish.
type Scheduler struct {
	cfg          config.SchedulerConfig
	syncSvc      service.FeedSyncService
	orchestrator service.DigestOrchestratorService
	digestRepo   repository.DigestRepository
	logger       *slog.Logger
	cron         *cron.Cron
}

// New creates a scheduler over the given services.
func New(
	cfg config.SchedulerConfig,
	syncSvc service.FeedSyncService,
	orchestrator service.DigestOrchestratorService,
	digestRepo repository.DigestRepository,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		syncSvc:      syncSvc,
		orchestrator: orchestrator,
		digestRepo:   digestRepo,
		logger:       logger,
		cron:         cron.New(),
	}
}

// Start registers the cron entries and launches the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.InfoContext(ctx, "scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.FetchSpec, func() { s.runFeedSync(ctx) }); err != nil {
		return fmt.Errorf("invalid fetch cron spec %q: %w", s.cfg.FetchSpec, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.DigestSpec, func() { s.runDigests(ctx) }); err != nil {
		return fmt.Errorf("invalid digest cron spec %q: %w", s.cfg.DigestSpec, err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started",
		"fetch_spec", s.cfg.FetchSpec, "digest_spec", s.cfg.DigestSpec)

	return nil
}

// Stop halts the cron loop and blocks until in-flight jobs return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runFeedSync(ctx context.Context) {
	result, err := s.syncSvc.SyncAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled feed sync failed", "error", err)
		return
	}

	s.logger.InfoContext(ctx, "scheduled feed sync finished",
		"processed", result.FeedsProcessed,
		"failed", result.FeedsFailed,
		"articles", result.ArticlesFetched)
}

// runDigests builds yesterday's digest for every active rule. With no rules
// configured the default daily rule still produces one digest.
func (s *Scheduler) runDigests(ctx context.Context) {
	date := time.Now().AddDate(0, 0, -1)

	rules, err := s.digestRepo.ListRules(ctx, true)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list rules for scheduled digests", "error", err)
		return
	}

	ruleIDs := make([]string, 0, len(rules))
	for _, rule := range rules {
		ruleIDs = append(ruleIDs, rule.ID)
	}
	if len(ruleIDs) == 0 {
		ruleIDs = append(ruleIDs, "")
	}

	for _, ruleID := range ruleIDs {
		digest, err := s.orchestrator.Generate(ctx, service.GenerateRequest{Date: date, RuleID: ruleID})
		switch {
		case errors.Is(err, domain.ErrNoArticles):
			s.logger.InfoContext(ctx, "no articles for scheduled digest",
				"date", date.Format("2006-01-02"), "rule_id", ruleID)
		case err != nil:
			s.logger.ErrorContext(ctx, "scheduled digest failed",
				"date", date.Format("2006-01-02"), "rule_id", ruleID, "error", err)
		default:
			s.logger.InfoContext(ctx, "scheduled digest built",
				"digest_id", digest.ID, "rule_id", ruleID, "articles", digest.ArticleCount)
		}
	}
}
