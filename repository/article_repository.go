// ABOUTME: This file implements article persistence with idempotent batch insert
// ABOUTME: The (feed_id, link) unique key deduplicates re-fetched items
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

type articleRepository struct {
	db     DB
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db DB, logger *slog.Logger) ArticleRepository {
	return &articleRepository{
		db:     db,
		logger: logger,
	}
}

// InsertBatch inserts articles inside one transaction and returns how many
// rows were actually written. Duplicates on (feed_id, link) are skipped.
func (r *articleRepository) InsertBatch(ctx context.Context, articles []*domain.Article) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO articles (id, feed_id, title, summary, link, thumbnail_url, published_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (feed_id, link) DO NOTHING
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to begin transaction", "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var inserted int64
	for _, article := range articles {
		if article.ID == "" {
			article.ID = uuid.New().String()
		}

		tag, err := tx.Exec(ctx, query,
			article.ID, article.FeedID, article.Title, article.Summary, article.Link,
			article.ThumbnailURL, article.PublishedDate, article.Status)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to insert article", "error", err, "link", article.Link)
			return 0, fmt.Errorf("failed to insert article: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to commit transaction", "error", err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "articles inserted", "attempted", len(articles), "inserted", inserted)

	return inserted, nil
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	query := `
		SELECT id, feed_id, title, summary, link, thumbnail_url, published_date, status, created_at, updated_at
		FROM articles WHERE id = $1
	`

	var article domain.Article
	err := r.db.QueryRow(ctx, query, id).Scan(
		&article.ID, &article.FeedID, &article.Title, &article.Summary,
		&article.Link, &article.ThumbnailURL, &article.PublishedDate,
		&article.Status, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArticleNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get article", "error", err, "article_id", id)
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return &article, nil
}

// ListByDateRange returns articles published in [from, to) joined with their
// feed titles, newest first. An optional filter narrows the result.
func (r *articleRepository) ListByDateRange(ctx context.Context, from, to time.Time, filter *ArticleFilter) ([]*domain.ArticleWithFeed, error) {
	query := `
		SELECT a.id, a.feed_id, a.title, a.summary, a.link, a.thumbnail_url,
			a.published_date, a.status, a.created_at, a.updated_at, f.title
		FROM articles a
		INNER JOIN feeds f ON a.feed_id = f.id
		WHERE a.published_date >= $1 AND a.published_date < $2
	`
	args := []any{from, to}

	if filter != nil {
		if filter.FeedID != "" {
			query += fmt.Sprintf(` AND a.feed_id = $%d`, len(args)+1)
			args = append(args, filter.FeedID)
		}
		if filter.Status != "" {
			query += fmt.Sprintf(` AND a.status = $%d`, len(args)+1)
			args = append(args, filter.Status)
		}
		if filter.Title != "" {
			query += fmt.Sprintf(` AND a.title ILIKE '%%' || $%d || '%%'`, len(args)+1)
			args = append(args, filter.Title)
		}
		if len(filter.CategoryIDs) > 0 {
			query += fmt.Sprintf(` AND f.category_id = ANY($%d)`, len(args)+1)
			args = append(args, filter.CategoryIDs)
		}
	}

	query += ` ORDER BY a.published_date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list articles by date range", "error", err)
		return nil, fmt.Errorf("failed to list articles by date range: %w", err)
	}
	defer rows.Close()

	articles := []*domain.ArticleWithFeed{}
	for rows.Next() {
		var a domain.ArticleWithFeed
		err := rows.Scan(
			&a.ID, &a.FeedID, &a.Title, &a.Summary, &a.Link, &a.ThumbnailURL,
			&a.PublishedDate, &a.Status, &a.CreatedAt, &a.UpdatedAt, &a.FeedTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}

	return articles, nil
}

func (r *articleRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE articles SET status = $1, updated_at = NOW() WHERE id = ANY($2)`

	_, err := r.db.Exec(ctx, query, domain.ArticleStatusProcessed, ids)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to mark articles processed", "error", err, "count", len(ids))
		return fmt.Errorf("failed to mark articles processed: %w", err)
	}

	return nil
}
