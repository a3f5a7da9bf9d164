package llm

import (
	"net/http"
	"strings"
)

const defaultVolcanoBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// newVolcanoClient builds a client for the Volcano Ark platform, which
// exposes an OpenAI-compatible API under its own base URL.
func newVolcanoClient(creds Credentials, httpClient *http.Client) *openAIClient {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultVolcanoBaseURL
	}

	return &openAIClient{
		vendor:     "volcano",
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     creds.APIKey,
		httpClient: httpClient,
	}
}
