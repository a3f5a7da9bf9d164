// ABOUTME: This file coordinates digest builds end to end
// ABOUTME: Collapses concurrent builds per fingerprint and persists one winner
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/driver"
	"rss-digest/repository"
)

type digestOrchestrator struct {
	digestRepo  repository.DigestRepository
	articleRepo repository.ArticleRepository
	summarizer  SummarizerService
	gateway     ProviderGatewayService
	vectorStore *driver.VectorStore
	digestCfg   config.DigestConfig
	vectorCfg   config.VectorStoreConfig
	group       singleflight.Group
	logger      *slog.Logger
}

// NewDigestOrchestrator creates a new digest orchestrator. vectorStore may
// be nil when embedding persistence is disabled.
func NewDigestOrchestrator(
	digestRepo repository.DigestRepository,
	articleRepo repository.ArticleRepository,
	summarizer SummarizerService,
	gateway ProviderGatewayService,
	vectorStore *driver.VectorStore,
	digestCfg config.DigestConfig,
	vectorCfg config.VectorStoreConfig,
	logger *slog.Logger,
) DigestOrchestratorService {
	return &digestOrchestrator{
		digestRepo:  digestRepo,
		articleRepo: articleRepo,
		summarizer:  summarizer,
		gateway:     gateway,
		vectorStore: vectorStore,
		digestCfg:   digestCfg,
		vectorCfg:   vectorCfg,
		logger:      logger,
	}
}

func (s *digestOrchestrator) Generate(ctx context.Context, req GenerateRequest) (*domain.Digest, error) {
	rule, err := s.resolveRule(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	day := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, req.Date.Location())
	fp := domain.Fingerprint{SourceDate: day, DigestType: rule.DigestType, RuleID: rule.ID}

	// All concurrent callers for one fingerprint share a single build.
	result, err, _ := s.group.Do(fp.Key(), func() (any, error) {
		return s.build(ctx, req, rule, day, fp)
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.Digest), nil
}

func (s *digestOrchestrator) resolveRule(ctx context.Context, ruleID string) (*domain.DigestRule, error) {
	if ruleID == "" {
		return domain.DefaultDailyRule(), nil
	}

	rule, err := s.digestRepo.GetRuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *digestOrchestrator) build(ctx context.Context, req GenerateRequest, rule *domain.DigestRule, day time.Time, fp domain.Fingerprint) (*domain.Digest, error) {
	existing, err := s.digestRepo.GetDigestByFingerprint(ctx, fp)
	switch {
	case err == nil && !req.Force:
		s.logger.InfoContext(ctx, "digest already exists", "digest_id", existing.ID, "fingerprint", fp.Key())
		return existing, nil
	case err == nil && req.Force:
		if err := s.digestRepo.DeleteDigest(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete digest for rebuild: %w", err)
		}
	case err != nil && !errors.Is(err, domain.ErrDigestNotFound):
		return nil, err
	}

	articles, err := s.selectArticles(ctx, rule, day)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		s.logger.InfoContext(ctx, "no articles in window, skipping digest", "fingerprint", fp.Key())
		return nil, domain.ErrNoArticles
	}

	summary, err := s.summarizer.Summarize(ctx, SummarizeRequest{Date: day, Rule: rule, Articles: articles})
	if err != nil {
		return nil, err
	}

	digest := &domain.Digest{
		UserID:       req.UserID,
		Title:        summary.Title,
		Content:      summary.Content,
		ArticleCount: len(articles),
		SourceDate:   day,
		DigestType:   rule.DigestType,
		RuleID:       rule.ID,
		Status:       domain.DigestStatusPublished,
	}

	if err := s.digestRepo.CreateDigest(ctx, digest); err != nil {
		return nil, fmt.Errorf("failed to persist digest: %w", err)
	}

	ids := make([]string, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}
	if err := s.articleRepo.MarkProcessed(ctx, ids); err != nil {
		// The digest is already committed; stale "new" statuses only cost a
		// re-read on the next build.
		s.logger.ErrorContext(ctx, "failed to mark articles processed",
			"digest_id", digest.ID, "error", err)
	}

	s.storeEmbedding(ctx, rule, digest)

	s.logger.InfoContext(ctx, "digest generated",
		"digest_id", digest.ID,
		"fingerprint", fp.Key(),
		"articles", digest.ArticleCount,
		"fallback", summary.Fallback,
		"model", summary.Model)

	return digest, nil
}

// selectArticles pulls the rule's window, applies its feed and keyword
// filters, and caps the per-feed article count.
func (s *digestOrchestrator) selectArticles(ctx context.Context, rule *domain.DigestRule, day time.Time) ([]*domain.ArticleWithFeed, error) {
	from, to := rule.Window(day)

	articles, err := s.articleRepo.ListByDateRange(ctx, from, to, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list articles for digest", "error", err)
		return nil, err
	}

	feedSet := make(map[string]struct{}, len(rule.FeedIDs))
	for _, id := range rule.FeedIDs {
		feedSet[id] = struct{}{}
	}

	perFeed := make(map[string]int)
	selected := make([]*domain.ArticleWithFeed, 0, len(articles))

	for _, article := range articles {
		if len(feedSet) > 0 {
			if _, ok := feedSet[article.FeedID]; !ok {
				continue
			}
		}
		if !matchesKeywords(article, rule.Keywords) {
			continue
		}
		if perFeed[article.FeedID] >= s.digestCfg.MaxArticlesPerFeed {
			continue
		}
		perFeed[article.FeedID]++
		selected = append(selected, article)
	}

	return selected, nil
}

// storeEmbedding writes one embedding per digest, best effort. A failure
// here never fails the build.
func (s *digestOrchestrator) storeEmbedding(ctx context.Context, rule *domain.DigestRule, digest *domain.Digest) {
	if !s.vectorCfg.Enabled || s.vectorStore == nil || rule.ProviderID == nil {
		return
	}

	vectors, err := s.gateway.Embed(ctx, *rule.ProviderID, s.vectorCfg.EmbeddingModel, []string{digest.Content})
	if err != nil || len(vectors) == 0 {
		s.logger.WarnContext(ctx, "failed to embed digest", "digest_id", digest.ID, "error", err)
		return
	}

	if err := s.vectorStore.UpsertDigestEmbedding(ctx, digest.ID, s.vectorCfg.EmbeddingModel, vectors[0]); err != nil {
		s.logger.WarnContext(ctx, "failed to store digest embedding", "digest_id", digest.ID, "error", err)
	}
}

func matchesKeywords(article *domain.ArticleWithFeed, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(article.Title + " " + article.Summary)
	for _, keyword := range keywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
