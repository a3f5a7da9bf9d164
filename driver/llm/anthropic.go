package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rss-digest/domain"
	"rss-digest/utils/logger"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

type anthropicClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newAnthropicClient(creds Credentials, httpClient *http.Client) *anthropicClient {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &anthropicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     creds.APIKey,
		httpClient: httpClient,
	}
}

type anthropicModelsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (c *anthropicClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	var parsed anthropicModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic models response: %w", err)
	}

	models := make([]ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, ModelInfo{ID: m.ID, OwnedBy: "anthropic"})
	}
	return models, nil
}

type anthropicChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
}

type anthropicChatResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *anthropicClient) ChatComplete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// The messages API rejects requests without max_tokens.
		maxTokens = 1024
	}

	// System prompts travel in a dedicated field, not the message list.
	payload := anthropicChatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			payload.System = m.Content
			continue
		}
		payload.Messages = append(payload.Messages, m)
	}

	body, err := c.do(ctx, http.MethodPost, "/messages", payload)
	if err != nil {
		return nil, err
	}

	var parsed anthropicChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic chat response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, domain.ErrEmptyCompletion
	}

	return &ChatResponse{
		Content:          text.String(),
		Model:            parsed.Model,
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
	}, nil
}

func (c *anthropicClient) Embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: anthropic does not expose an embeddings API", domain.ErrUnsupportedOperation)
}

func (c *anthropicClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal anthropic payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, translateTransport(ctx, "anthropic", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read anthropic response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, translateStatus("anthropic", resp.StatusCode, string(body))
	}

	return body, nil
}
