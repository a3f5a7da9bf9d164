// ABOUTME: This file defines the vendor-neutral LLM client contract and factory
// ABOUTME: Translates vendor HTTP failures into the domain's typed provider errors
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rss-digest/domain"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

type ModelInfo struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Client is the vendor-neutral surface every provider implementation
// satisfies. Implementations return the domain's typed errors so callers can
// classify failures with errors.Is.
type Client interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	ChatComplete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, model string, input []string) ([][]float32, error)
}

// Credentials carries the resolved key and optional base URL override for a
// provider. Resolution order is handled by the gateway, not here.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// NewClient builds a vendor client for the given provider type.
func NewClient(providerType domain.ProviderType, creds Credentials, httpClient *http.Client) (Client, error) {
	if creds.APIKey == "" {
		return nil, domain.ErrMissingCredential
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 240 * time.Second}
	}

	switch providerType {
	case domain.ProviderOpenAI:
		return newOpenAIClient(creds, httpClient), nil
	case domain.ProviderAnthropic:
		return newAnthropicClient(creds, httpClient), nil
	case domain.ProviderGemini:
		return newGeminiClient(creds, httpClient), nil
	case domain.ProviderVolcano:
		return newVolcanoClient(creds, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProviderType, providerType)
	}
}

// translateStatus maps vendor HTTP status codes onto domain errors.
func translateStatus(vendor string, status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d", domain.ErrProviderAuth, vendor, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned status %d", domain.ErrProviderRateLimited, vendor, status)
	case status >= 500:
		return fmt.Errorf("%w: %s returned status %d", domain.ErrProviderUnavailable, vendor, status)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrInvalidRequest, vendor, status, truncateBody(body))
	}
}

// translateTransport maps network-level failures onto ErrProviderUnavailable.
// Context cancellation passes through untouched so callers can tell the two
// apart.
func translateTransport(ctx context.Context, vendor string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, vendor, err)
}

func truncateBody(body string) string {
	const max = 256
	if len(body) > max {
		return body[:max]
	}
	return body
}
