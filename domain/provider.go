package domain

import "time"

// ProviderType discriminates the vendor adapter used for a provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGemini    ProviderType = "gemini"
	ProviderVolcano   ProviderType = "volcano"
)

// ValidProviderType reports whether t names a known vendor adapter.
func ValidProviderType(t ProviderType) bool {
	switch t {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderVolcano:
		return true
	}
	return false
}

// MaskedAPIKey is the placeholder returned in place of a stored key. It is
// also accepted on update to mean "keep the stored key".
const MaskedAPIKey = "********"

// Provider is a configured LLM vendor credential/endpoint pair. APIKey is
// plaintext only in memory; the repository encrypts it at rest and handlers
// mask it on the way out.
type Provider struct {
	ID           int64
	Name         string
	ProviderType ProviderType
	Description  string

	APIKey       string
	APIBaseURL   string
	DefaultModel string

	IsActive       bool
	LastVerifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Masked returns a copy safe for API responses: the key is replaced by the
// placeholder when set, never echoed back.
func (p Provider) Masked() Provider {
	if p.APIKey != "" {
		p.APIKey = MaskedAPIKey
	}
	return p
}
