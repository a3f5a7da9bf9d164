// ABOUTME: This file implements LLM provider persistence with encrypted API keys
// ABOUTME: Keys are sealed before INSERT and opened after SELECT
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"rss-digest/domain"
)

const providerColumns = `id, name, provider_type, description, api_key, api_base_url,
	default_model, is_active, last_verified_at, created_at, updated_at`

type providerRepository struct {
	db     DB
	cipher *KeyCipher
	logger *slog.Logger
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db DB, cipher *KeyCipher, logger *slog.Logger) ProviderRepository {
	return &providerRepository{
		db:     db,
		cipher: cipher,
		logger: logger,
	}
}

func (r *providerRepository) Create(ctx context.Context, provider *domain.Provider) error {
	sealed, err := r.cipher.Seal(provider.APIKey)
	if err != nil {
		return fmt.Errorf("failed to seal api key: %w", err)
	}

	query := `
		INSERT INTO llm_providers (name, provider_type, description, api_key, api_base_url, default_model, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		provider.Name, provider.ProviderType, provider.Description,
		sealed, provider.APIBaseURL, provider.DefaultModel, provider.IsActive,
	).Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create provider", "error", err, "name", provider.Name)
		return fmt.Errorf("failed to create provider: %w", err)
	}

	r.logger.InfoContext(ctx, "provider created", "provider_id", provider.ID,
		"provider_type", provider.ProviderType)

	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM llm_providers WHERE id = $1`

	provider, err := r.scanProvider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProviderNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get provider", "error", err, "provider_id", id)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return provider, nil
}

func (r *providerRepository) List(ctx context.Context) ([]*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM llm_providers ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list providers", "error", err)
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	providers := []*domain.Provider{}
	for rows.Next() {
		provider, err := r.scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, provider)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read providers: %w", err)
	}

	return providers, nil
}

func (r *providerRepository) Update(ctx context.Context, provider *domain.Provider) error {
	sealed, err := r.cipher.Seal(provider.APIKey)
	if err != nil {
		return fmt.Errorf("failed to seal api key: %w", err)
	}

	query := `
		UPDATE llm_providers SET
			name = $1, provider_type = $2, description = $3, api_key = $4,
			api_base_url = $5, default_model = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
	`

	tag, err := r.db.Exec(ctx, query,
		provider.Name, provider.ProviderType, provider.Description, sealed,
		provider.APIBaseURL, provider.DefaultModel, provider.IsActive, provider.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update provider", "error", err, "provider_id", provider.ID)
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProviderNotFound
	}

	return nil
}

func (r *providerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM llm_providers WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete provider", "error", err, "provider_id", id)
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProviderNotFound
	}

	r.logger.InfoContext(ctx, "provider deleted", "provider_id", id)

	return nil
}

// TouchVerified records a successful connection test.
func (r *providerRepository) TouchVerified(ctx context.Context, id int64, verifiedAt time.Time) error {
	query := `UPDATE llm_providers SET last_verified_at = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, verifiedAt, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to touch provider verification", "error", err, "provider_id", id)
		return fmt.Errorf("failed to touch provider verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProviderNotFound
	}

	return nil
}

func (r *providerRepository) scanProvider(row pgx.Row) (*domain.Provider, error) {
	var provider domain.Provider
	var sealedKey string

	err := row.Scan(
		&provider.ID, &provider.Name, &provider.ProviderType, &provider.Description,
		&sealedKey, &provider.APIBaseURL, &provider.DefaultModel,
		&provider.IsActive, &provider.LastVerifiedAt,
		&provider.CreatedAt, &provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sealedKey != "" {
		key, err := r.cipher.Open(sealedKey)
		if err != nil {
			return nil, fmt.Errorf("failed to open api key: %w", err)
		}
		provider.APIKey = key
	}

	return &provider, nil
}
