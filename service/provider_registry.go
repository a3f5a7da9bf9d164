package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rss-digest/domain"
	"rss-digest/repository"
)

// providerRegistry manages provider records. Plaintext keys exist only on
// the way in; every provider leaving this service is masked.
type providerRegistry struct {
	providerRepo repository.ProviderRepository
	logger       *slog.Logger
}

// NewProviderRegistry creates a new provider registry service.
func NewProviderRegistry(providerRepo repository.ProviderRepository, logger *slog.Logger) ProviderRegistryService {
	return &providerRegistry{
		providerRepo: providerRepo,
		logger:       logger,
	}
}

func (s *providerRegistry) Create(ctx context.Context, provider *domain.Provider) (*domain.Provider, error) {
	if err := validateProvider(provider); err != nil {
		return nil, err
	}

	if err := s.providerRepo.Create(ctx, provider); err != nil {
		s.logger.ErrorContext(ctx, "failed to create provider", "name", provider.Name, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "provider created",
		"provider_id", provider.ID, "name", provider.Name, "type", provider.ProviderType)

	masked := provider.Masked()
	return &masked, nil
}

func (s *providerRegistry) Get(ctx context.Context, id int64) (*domain.Provider, error) {
	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	masked := provider.Masked()
	return &masked, nil
}

func (s *providerRegistry) List(ctx context.Context) ([]*domain.Provider, error) {
	providers, err := s.providerRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	masked := make([]*domain.Provider, 0, len(providers))
	for _, provider := range providers {
		m := provider.Masked()
		masked = append(masked, &m)
	}
	return masked, nil
}

func (s *providerRegistry) Update(ctx context.Context, provider *domain.Provider) (*domain.Provider, error) {
	existing, err := s.providerRepo.GetByID(ctx, provider.ID)
	if err != nil {
		return nil, err
	}

	// The masked placeholder (or an empty key) means "keep the stored key".
	if provider.APIKey == "" || provider.APIKey == domain.MaskedAPIKey {
		provider.APIKey = existing.APIKey
	}

	if err := validateProvider(provider); err != nil {
		return nil, err
	}

	if err := s.providerRepo.Update(ctx, provider); err != nil {
		s.logger.ErrorContext(ctx, "failed to update provider", "provider_id", provider.ID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "provider updated", "provider_id", provider.ID, "name", provider.Name)

	masked := provider.Masked()
	return &masked, nil
}

func (s *providerRegistry) Delete(ctx context.Context, id int64) error {
	if err := s.providerRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "provider deleted", "provider_id", id)
	return nil
}

func validateProvider(provider *domain.Provider) error {
	if strings.TrimSpace(provider.Name) == "" {
		return fmt.Errorf("%w: provider name is required", domain.ErrInvalidRequest)
	}
	if !domain.ValidProviderType(provider.ProviderType) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownProviderType, provider.ProviderType)
	}
	return nil
}
