// ABOUTME: This file implements feed persistence including fetch health bookkeeping
// ABOUTME: Feeds carry consecutive failure counts that drive the health state machine
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rss-digest/domain"
)

const feedColumns = `id, url, category_id, title, description, logo, is_active,
	last_fetch_at, last_fetch_status, last_fetch_error, last_successful_fetch_at,
	total_articles_count, consecutive_failures, created_at, updated_at`

type feedRepository struct {
	db     DB
	logger *slog.Logger
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db DB, logger *slog.Logger) FeedRepository {
	return &feedRepository{
		db:     db,
		logger: logger,
	}
}

func (r *feedRepository) Create(ctx context.Context, feed *domain.Feed) error {
	if feed.ID == "" {
		feed.ID = uuid.New().String()
	}

	query := `
		INSERT INTO feeds (id, url, category_id, title, description, logo, is_active, last_fetch_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		feed.ID, feed.URL, feed.CategoryID, feed.Title, feed.Description, feed.Logo,
		feed.IsActive, feed.LastFetchStatus,
	).Scan(&feed.CreatedAt, &feed.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create feed", "error", err, "url", feed.URL)
		return fmt.Errorf("failed to create feed: %w", err)
	}

	r.logger.InfoContext(ctx, "feed created", "feed_id", feed.ID, "url", feed.URL)

	return nil
}

func (r *feedRepository) GetByID(ctx context.Context, id string) (*domain.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1`

	feed, err := r.scanFeed(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeedNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get feed", "error", err, "feed_id", id)
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *feedRepository) GetByURL(ctx context.Context, url string) (*domain.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE url = $1`

	feed, err := r.scanFeed(r.db.QueryRow(ctx, query, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeedNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get feed by url", "error", err, "url", url)
		return nil, fmt.Errorf("failed to get feed by url: %w", err)
	}

	return feed, nil
}

func (r *feedRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list feeds", "error", err)
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	return r.collectFeeds(rows)
}

// ListDue returns active feeds whose next scheduled fetch time has passed.
// Feeds that were never fetched have next_fetch_at NULL and are always due.
func (r *feedRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds
		WHERE is_active = TRUE AND (next_fetch_at IS NULL OR next_fetch_at <= $1)
		ORDER BY last_fetch_at ASC NULLS FIRST`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list due feeds", "error", err)
		return nil, fmt.Errorf("failed to list due feeds: %w", err)
	}
	defer rows.Close()

	return r.collectFeeds(rows)
}

func (r *feedRepository) Update(ctx context.Context, feed *domain.Feed) error {
	query := `
		UPDATE feeds SET
			url = $1, category_id = $2, title = $3, description = $4,
			logo = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
	`

	tag, err := r.db.Exec(ctx, query,
		feed.URL, feed.CategoryID, feed.Title, feed.Description,
		feed.Logo, feed.IsActive, feed.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update feed", "error", err, "feed_id", feed.ID)
		return fmt.Errorf("failed to update feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFeedNotFound
	}

	return nil
}

// UpdateFetchState persists the outcome of one fetch attempt along with
// the computed next fetch time.
func (r *feedRepository) UpdateFetchState(ctx context.Context, feed *domain.Feed, nextFetchAt time.Time) error {
	query := `
		UPDATE feeds SET
			last_fetch_at = $1, last_fetch_status = $2, last_fetch_error = $3,
			last_successful_fetch_at = $4, total_articles_count = $5,
			consecutive_failures = $6, next_fetch_at = $7, updated_at = NOW()
		WHERE id = $8
	`

	tag, err := r.db.Exec(ctx, query,
		feed.LastFetchAt, feed.LastFetchStatus, feed.LastFetchError,
		feed.LastSuccessfulFetchAt, feed.TotalArticlesCount,
		feed.ConsecutiveFailures, nextFetchAt, feed.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update feed fetch state", "error", err, "feed_id", feed.ID)
		return fmt.Errorf("failed to update feed fetch state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFeedNotFound
	}

	return nil
}

func (r *feedRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete feed", "error", err, "feed_id", id)
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFeedNotFound
	}

	r.logger.InfoContext(ctx, "feed deleted", "feed_id", id)

	return nil
}

func (r *feedRepository) scanFeed(row pgx.Row) (*domain.Feed, error) {
	var feed domain.Feed

	err := row.Scan(
		&feed.ID, &feed.URL, &feed.CategoryID, &feed.Title, &feed.Description,
		&feed.Logo, &feed.IsActive, &feed.LastFetchAt, &feed.LastFetchStatus,
		&feed.LastFetchError, &feed.LastSuccessfulFetchAt,
		&feed.TotalArticlesCount, &feed.ConsecutiveFailures,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &feed, nil
}

func (r *feedRepository) collectFeeds(rows pgx.Rows) ([]*domain.Feed, error) {
	feeds := []*domain.Feed{}

	for rows.Next() {
		feed, err := r.scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feeds: %w", err)
	}

	return feeds, nil
}
