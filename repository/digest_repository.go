// ABOUTME: This file implements digest and digest rule persistence
// ABOUTME: The (source_date, digest_type, rule_id) unique key enforces one digest per fingerprint
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rss-digest/domain"
)

type digestRepository struct {
	db     DB
	logger *slog.Logger
}

// NewDigestRepository creates a new digest repository.
func NewDigestRepository(db DB, logger *slog.Logger) DigestRepository {
	return &digestRepository{
		db:     db,
		logger: logger,
	}
}

func (r *digestRepository) CreateDigest(ctx context.Context, digest *domain.Digest) error {
	if digest.ID == "" {
		digest.ID = uuid.New().String()
	}

	query := `
		INSERT INTO digests (id, user_id, title, content, article_count, source_date, digest_type, rule_id, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		digest.ID, digest.UserID, digest.Title, digest.Content,
		digest.ArticleCount, digest.SourceDate, digest.DigestType,
		digest.RuleID, digest.Status, digest.ErrorMessage,
	).Scan(&digest.CreatedAt, &digest.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create digest", "error", err,
			"source_date", digest.SourceDate.Format("2006-01-02"),
			"digest_type", digest.DigestType)
		return fmt.Errorf("failed to create digest: %w", err)
	}

	r.logger.InfoContext(ctx, "digest created", "digest_id", digest.ID,
		"article_count", digest.ArticleCount)

	return nil
}

const digestColumns = `id, user_id, title, content, article_count, source_date,
	digest_type, rule_id, status, error_message, created_at, updated_at`

func (r *digestRepository) GetDigestByID(ctx context.Context, id string) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests WHERE id = $1`

	digest, err := r.scanDigest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDigestNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get digest", "error", err, "digest_id", id)
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return digest, nil
}

func (r *digestRepository) GetDigestByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests
		WHERE source_date = $1 AND digest_type = $2 AND rule_id = $3`

	digest, err := r.scanDigest(r.db.QueryRow(ctx, query, fp.SourceDate, fp.DigestType, fp.RuleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDigestNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get digest by fingerprint", "error", err, "key", fp.Key())
		return nil, fmt.Errorf("failed to get digest by fingerprint: %w", err)
	}

	return digest, nil
}

func (r *digestRepository) ListDigests(ctx context.Context, filter DigestFilter, limit, offset int) ([]*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests`
	args := []any{}
	clauses := []string{}

	if filter.DigestType != "" {
		clauses = append(clauses, fmt.Sprintf(`digest_type = $%d`, len(args)+1))
		args = append(args, filter.DigestType)
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)+1))
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, fmt.Sprintf(`source_date >= $%d`, len(args)+1))
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, fmt.Sprintf(`source_date < $%d`, len(args)+1))
		args = append(args, filter.To)
	}
	if filter.Title != "" {
		clauses = append(clauses, fmt.Sprintf(`title ILIKE '%%' || $%d || '%%'`, len(args)+1))
		args = append(args, filter.Title)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	query += fmt.Sprintf(` ORDER BY source_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list digests", "error", err)
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	digests := []*domain.Digest{}
	for rows.Next() {
		digest, err := r.scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest: %w", err)
		}
		digests = append(digests, digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read digests: %w", err)
	}

	return digests, nil
}

func (r *digestRepository) UpdateDigestStatus(ctx context.Context, id string, status domain.DigestStatus) error {
	query := `UPDATE digests SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update digest status", "error", err, "digest_id", id)
		return fmt.Errorf("failed to update digest status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDigestNotFound
	}

	r.logger.InfoContext(ctx, "digest status updated", "digest_id", id, "status", status)

	return nil
}

func (r *digestRepository) DeleteDigest(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM digests WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete digest", "error", err, "digest_id", id)
		return fmt.Errorf("failed to delete digest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDigestNotFound
	}

	return nil
}

func (r *digestRepository) scanDigest(row pgx.Row) (*domain.Digest, error) {
	var digest domain.Digest

	err := row.Scan(
		&digest.ID, &digest.UserID, &digest.Title, &digest.Content,
		&digest.ArticleCount, &digest.SourceDate, &digest.DigestType,
		&digest.RuleID, &digest.Status, &digest.ErrorMessage,
		&digest.CreatedAt, &digest.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &digest, nil
}

const ruleColumns = `id, user_id, name, digest_type, feed_ids, keywords,
	summary_length, include_categories, include_keywords, prompt_template,
	provider_id, model, temperature, max_tokens, schedule_time, is_active,
	created_at, updated_at`

func (r *digestRepository) CreateRule(ctx context.Context, rule *domain.DigestRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	query := `
		INSERT INTO digest_rules (id, user_id, name, digest_type, feed_ids, keywords,
			summary_length, include_categories, include_keywords, prompt_template,
			provider_id, model, temperature, max_tokens, schedule_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rule.ID, rule.UserID, rule.Name, rule.DigestType, rule.FeedIDs, rule.Keywords,
		rule.SummaryLength, rule.IncludeCategories, rule.IncludeKeywords, rule.PromptTemplate,
		rule.ProviderID, rule.Model, rule.Temperature, rule.MaxTokens, rule.ScheduleTime, rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create digest rule", "error", err, "name", rule.Name)
		return fmt.Errorf("failed to create digest rule: %w", err)
	}

	r.logger.InfoContext(ctx, "digest rule created", "rule_id", rule.ID, "name", rule.Name)

	return nil
}

func (r *digestRepository) GetRuleByID(ctx context.Context, id string) (*domain.DigestRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM digest_rules WHERE id = $1`

	rule, err := r.scanRule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get digest rule", "error", err, "rule_id", id)
		return nil, fmt.Errorf("failed to get digest rule: %w", err)
	}

	return rule, nil
}

func (r *digestRepository) ListRules(ctx context.Context, activeOnly bool) ([]*domain.DigestRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM digest_rules`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list digest rules", "error", err)
		return nil, fmt.Errorf("failed to list digest rules: %w", err)
	}
	defer rows.Close()

	rules := []*domain.DigestRule{}
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read digest rules: %w", err)
	}

	return rules, nil
}

func (r *digestRepository) UpdateRule(ctx context.Context, rule *domain.DigestRule) error {
	query := `
		UPDATE digest_rules SET
			name = $1, digest_type = $2, feed_ids = $3, keywords = $4,
			summary_length = $5, include_categories = $6, include_keywords = $7,
			prompt_template = $8, provider_id = $9, model = $10,
			temperature = $11, max_tokens = $12, schedule_time = $13,
			is_active = $14, updated_at = NOW()
		WHERE id = $15
	`

	tag, err := r.db.Exec(ctx, query,
		rule.Name, rule.DigestType, rule.FeedIDs, rule.Keywords,
		rule.SummaryLength, rule.IncludeCategories, rule.IncludeKeywords,
		rule.PromptTemplate, rule.ProviderID, rule.Model,
		rule.Temperature, rule.MaxTokens, rule.ScheduleTime,
		rule.IsActive, rule.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update digest rule", "error", err, "rule_id", rule.ID)
		return fmt.Errorf("failed to update digest rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

func (r *digestRepository) DeleteRule(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM digest_rules WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete digest rule", "error", err, "rule_id", id)
		return fmt.Errorf("failed to delete digest rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

func (r *digestRepository) scanRule(row pgx.Row) (*domain.DigestRule, error) {
	var rule domain.DigestRule

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.Name, &rule.DigestType, &rule.FeedIDs, &rule.Keywords,
		&rule.SummaryLength, &rule.IncludeCategories, &rule.IncludeKeywords, &rule.PromptTemplate,
		&rule.ProviderID, &rule.Model, &rule.Temperature, &rule.MaxTokens,
		&rule.ScheduleTime, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}
