// ABOUTME: This file is the single entry point for LLM vendor calls
// ABOUTME: Resolves credentials and wraps calls in rate limiting, retry and a breaker
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"rss-digest/cache"
	"rss-digest/config"
	"rss-digest/domain"
	"rss-digest/driver/llm"
	"rss-digest/repository"
	"rss-digest/utils"
)

// clientFactory builds a vendor client. Swapped out in tests.
type clientFactory func(providerType domain.ProviderType, creds llm.Credentials, httpClient *http.Client) (llm.Client, error)

type providerGateway struct {
	providerRepo repository.ProviderRepository
	modelCache   cache.Cache
	limiter      *utils.KeyedRateLimiter
	retry        *utils.RetryPolicy
	cfg          config.ProviderConfig
	httpClient   *http.Client
	newClient    clientFactory
	logger       *slog.Logger

	mu       sync.Mutex
	breakers map[int64]*utils.CircuitBreaker
}

// NewProviderGateway creates a new provider gateway service.
func NewProviderGateway(
	providerRepo repository.ProviderRepository,
	modelCache cache.Cache,
	cfg config.ProviderConfig,
	retryCfg config.RetryConfig,
	logger *slog.Logger,
) ProviderGatewayService {
	return &providerGateway{
		providerRepo: providerRepo,
		modelCache:   modelCache,
		limiter:      utils.NewKeyedRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		retry:        utils.NewRetryPolicy(retryCfg.MaxAttempts, retryCfg.BaseDelay).WithMaxDelay(retryCfg.MaxDelay),
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		newClient:    llm.NewClient,
		logger:       logger,
	}
}

func (g *providerGateway) ListModels(ctx context.Context, providerID int64, override *CredentialOverride) ([]llm.ModelInfo, error) {
	cacheKey := fmt.Sprintf("models:%d", providerID)

	// Overridden credentials may see a different model set, so they
	// neither read nor fill the shared cache.
	if g.modelCache != nil && override == nil {
		if raw, ok, err := g.modelCache.Get(ctx, cacheKey); err == nil && ok {
			var models []llm.ModelInfo
			if err := json.Unmarshal(raw, &models); err == nil {
				return models, nil
			}
		}
	}

	client, _, err := g.clientFor(ctx, providerID, override)
	if err != nil {
		return nil, err
	}

	var models []llm.ModelInfo
	err = g.call(ctx, providerID, func() error {
		var callErr error
		models, callErr = client.ListModels(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if g.modelCache != nil && override == nil {
		if raw, err := json.Marshal(models); err == nil {
			if err := g.modelCache.Set(ctx, cacheKey, raw, g.cfg.ModelCacheTTL); err != nil {
				g.logger.WarnContext(ctx, "failed to cache model list", "provider_id", providerID, "error", err)
			}
		}
	}

	return models, nil
}

func (g *providerGateway) ChatComplete(ctx context.Context, providerID int64, req llm.ChatRequest, override *CredentialOverride) (*llm.ChatResponse, error) {
	client, provider, err := g.clientFor(ctx, providerID, override)
	if err != nil {
		return nil, err
	}

	if req.Model == "" {
		req.Model = provider.DefaultModel
	}

	var resp *llm.ChatResponse
	err = g.call(ctx, providerID, func() error {
		var callErr error
		resp, callErr = client.ChatComplete(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (g *providerGateway) Embed(ctx context.Context, providerID int64, model string, input []string) ([][]float32, error) {
	client, _, err := g.clientFor(ctx, providerID, nil)
	if err != nil {
		return nil, err
	}

	var vectors [][]float32
	err = g.call(ctx, providerID, func() error {
		var callErr error
		vectors, callErr = client.Embed(ctx, model, input)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

func (g *providerGateway) TestConnection(ctx context.Context, providerID int64, override *CredentialOverride) (*ConnectionTestResult, error) {
	client, provider, err := g.clientFor(ctx, providerID, override)
	if err != nil {
		return nil, err
	}

	result := &ConnectionTestResult{ProviderName: provider.Name}

	// Probe the vendor directly: the cache and retry machinery would hide
	// exactly what the operator is trying to see.
	models, err := client.ListModels(ctx)
	if err != nil {
		result.Error = err.Error()
		g.logger.WarnContext(ctx, "provider connection test failed",
			"provider_id", providerID, "provider", provider.Name, "error", err)
		return result, nil
	}

	result.Success = true
	result.Models = models

	if err := g.providerRepo.TouchVerified(ctx, providerID, time.Now()); err != nil {
		g.logger.WarnContext(ctx, "failed to record provider verification",
			"provider_id", providerID, "error", err)
	}

	return result, nil
}

func (g *providerGateway) ChatCompleteAny(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, int64, error) {
	providers, err := g.providerRepo.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	var lastErr error
	for _, provider := range providers {
		if !provider.IsActive {
			continue
		}

		resp, err := g.ChatComplete(ctx, provider.ID, req, nil)
		if err == nil {
			return resp, provider.ID, nil
		}

		lastErr = err
		g.logger.WarnContext(ctx, "provider failed, trying next",
			"provider_id", provider.ID, "provider", provider.Name, "error", err)
	}

	if lastErr == nil {
		lastErr = domain.ErrProviderNotFound
	}
	return nil, 0, fmt.Errorf("no active provider could complete the request: %w", lastErr)
}

// clientFor loads the provider record and builds a vendor client for it.
// An explicit override wins, then the stored key, then the vendor's
// conventional environment variable. Overrides apply to this client only
// and are never written back to the record.
func (g *providerGateway) clientFor(ctx context.Context, providerID int64, override *CredentialOverride) (llm.Client, *domain.Provider, error) {
	provider, err := g.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}

	creds := llm.Credentials{
		APIKey:  provider.APIKey,
		BaseURL: provider.APIBaseURL,
	}
	if override != nil {
		if override.APIKey != "" {
			creds.APIKey = override.APIKey
		}
		if override.APIBaseURL != "" {
			creds.BaseURL = override.APIBaseURL
		}
	}
	if creds.APIKey == "" {
		creds.APIKey = os.Getenv(envKeyFor(provider.ProviderType))
	}

	client, err := g.newClient(provider.ProviderType, creds, g.httpClient)
	if err != nil {
		return nil, nil, err
	}

	return client, provider, nil
}

// call runs one vendor operation under the per-provider rate limit, the
// circuit breaker and the retry policy. Only transient failures count
// toward the breaker and are retried.
func (g *providerGateway) call(ctx context.Context, providerID int64, op func() error) error {
	if err := g.limiter.Wait(ctx, strconv.FormatInt(providerID, 10)); err != nil {
		return err
	}

	breaker := g.breakerFor(providerID)

	return g.retry.Execute(ctx, func() error {
		return breaker.Call(op)
	}, func(err error) bool {
		return domain.TransientProviderError(err)
	})
}

func (g *providerGateway) breakerFor(providerID int64) *utils.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	breaker, ok := g.breakers[providerID]
	if !ok {
		if g.breakers == nil {
			g.breakers = make(map[int64]*utils.CircuitBreaker)
		}
		breaker = utils.NewCircuitBreaker(g.cfg.BreakerFailures, g.cfg.BreakerTimeout)
		g.breakers[providerID] = breaker
	}
	return breaker
}

func envKeyFor(providerType domain.ProviderType) string {
	switch providerType {
	case domain.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case domain.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case domain.ProviderGemini:
		return "GEMINI_API_KEY"
	case domain.ProviderVolcano:
		return "VOLCANO_API_KEY"
	}
	return ""
}
