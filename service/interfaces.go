package service

import (
	"context"
	"time"

	"rss-digest/domain"
	"rss-digest/driver/llm"
)

// FeedFetcherService fetches and normalizes one feed's current items.
type FeedFetcherService interface {
	Fetch(ctx context.Context, feed *domain.Feed) *FetchOutcome
}

// FetchOutcome is the classified result of one fetch attempt.
type FetchOutcome struct {
	Articles []*domain.Article
	// Transient reports whether a failure is worth retrying (network,
	// 5xx, rate limiting). Parse failures and 4xx are permanent.
	Transient bool
	Err       error
}

// FeedHealthService owns the feed health state machine. Apply folds one
// fetch outcome into the feed and returns the delay until the next fetch.
type FeedHealthService interface {
	Apply(ctx context.Context, feed *domain.Feed, outcome *FetchOutcome, inserted int64) (time.Duration, error)
	Snapshot(ctx context.Context) ([]*FeedHealth, error)
}

// FeedHealth pairs a feed with its derived health state for reporting.
type FeedHealth struct {
	Feed  *domain.Feed
	State domain.HealthState
}

// FeedSyncService drives fetching across all due feeds.
type FeedSyncService interface {
	SyncAll(ctx context.Context) (*SyncResult, error)
	SyncOne(ctx context.Context, feedID string) (*SyncResult, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	FeedsProcessed  int
	FeedsFailed     int
	ArticlesFetched int64
}

// DigestOrchestratorService builds digests. Concurrent Generate calls for
// the same fingerprint collapse into one build; everyone gets the winner.
type DigestOrchestratorService interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.Digest, error)
}

// GenerateRequest asks for a digest of date under a rule. Force rebuilds
// even when a digest already exists for the fingerprint.
type GenerateRequest struct {
	UserID string
	Date   time.Time
	RuleID string
	Force  bool
}

// SummarizerService turns a day's articles into digest content, through an
// LLM when one is reachable and extractively otherwise.
type SummarizerService interface {
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error)
}

// SummarizeRequest carries the selected articles and the governing rule.
type SummarizeRequest struct {
	Date     time.Time
	Rule     *domain.DigestRule
	Articles []*domain.ArticleWithFeed
}

// SummarizeResult is the produced digest body plus build metadata.
type SummarizeResult struct {
	Title    string
	Content  string
	Fallback bool
	Model    string
}

// ProviderGatewayService is the single entry point for talking to LLM
// vendors: credential resolution, rate limiting, retries and the circuit
// breaker all live behind it.
type ProviderGatewayService interface {
	ListModels(ctx context.Context, providerID int64, override *CredentialOverride) ([]llm.ModelInfo, error)
	ChatComplete(ctx context.Context, providerID int64, req llm.ChatRequest, override *CredentialOverride) (*llm.ChatResponse, error)
	Embed(ctx context.Context, providerID int64, model string, input []string) ([][]float32, error)
	TestConnection(ctx context.Context, providerID int64, override *CredentialOverride) (*ConnectionTestResult, error)
	// ChatCompleteAny picks the first active provider that succeeds.
	ChatCompleteAny(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, int64, error)
}

// CredentialOverride substitutes a key or base URL for one call. An
// explicit key wins over the stored one; the stored record is never
// touched.
type CredentialOverride struct {
	APIKey     string
	APIBaseURL string
}

// ConnectionTestResult mirrors what the admin surface shows after a
// connectivity probe.
type ConnectionTestResult struct {
	Success      bool            `json:"success"`
	ProviderName string          `json:"provider_name"`
	Models       []llm.ModelInfo `json:"models,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ProviderRegistryService manages provider records. Keys never leave it
// unmasked.
type ProviderRegistryService interface {
	Create(ctx context.Context, provider *domain.Provider) (*domain.Provider, error)
	Get(ctx context.Context, id int64) (*domain.Provider, error)
	List(ctx context.Context) ([]*domain.Provider, error)
	Update(ctx context.Context, provider *domain.Provider) (*domain.Provider, error)
	Delete(ctx context.Context, id int64) error
}
