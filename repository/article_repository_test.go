package repository

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/domain"
	"rss-digest/utils/logger"
)

func TestArticleRepository_InsertBatch(t *testing.T) {
	t.Run("should count only newly inserted rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		// First row inserts, second hits the (feed_id, link) conflict.
		mock.ExpectExec(`INSERT INTO articles`).
			WithArgs(pgxmock.AnyArg(), "feed-1", "Fresh", "", "https://example.com/1", "", pgxmock.AnyArg(), domain.ArticleStatusNew).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO articles`).
			WithArgs(pgxmock.AnyArg(), "feed-1", "Dupe", "", "https://example.com/2", "", pgxmock.AnyArg(), domain.ArticleStatusNew).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectCommit()

		repo := NewArticleRepository(mock, logger.Logger)

		articles := []*domain.Article{
			{FeedID: "feed-1", Title: "Fresh", Link: "https://example.com/1", PublishedDate: time.Now(), Status: domain.ArticleStatusNew},
			{FeedID: "feed-1", Title: "Dupe", Link: "https://example.com/2", PublishedDate: time.Now(), Status: domain.ArticleStatusNew},
		}

		inserted, err := repo.InsertBatch(context.Background(), articles)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should no-op on empty batch", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewArticleRepository(mock, logger.Logger)

		inserted, err := repo.InsertBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})
}

func TestArticleRepository_ListByDateRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "feed_id", "title", "summary", "link", "thumbnail_url",
		"published_date", "status", "created_at", "updated_at", "feed_title",
	}).AddRow(
		"article-1", "feed-1", "Go release", "notes", "https://example.com/1", "",
		from.Add(9*time.Hour), domain.ArticleStatusNew, now, now, "Example Feed",
	)

	mock.ExpectQuery(`SELECT .+ FROM articles a\s+INNER JOIN feeds f ON a\.feed_id = f\.id`).
		WithArgs(from, to).
		WillReturnRows(rows)

	repo := NewArticleRepository(mock, logger.Logger)

	articles, err := repo.ListByDateRange(context.Background(), from, to, nil)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Go release", articles[0].Title)
	assert.Equal(t, "Example Feed", articles[0].FeedTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_ListByDateRange_Filter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "feed_id", "title", "summary", "link", "thumbnail_url",
		"published_date", "status", "created_at", "updated_at", "feed_title",
	}).AddRow(
		"article-1", "feed-1", "Go release", "notes", "https://example.com/1", "",
		from.Add(9*time.Hour), domain.ArticleStatusNew, now, now, "Example Feed",
	)

	mock.ExpectQuery(`AND a\.feed_id = \$3 AND a\.status = \$4 AND a\.title ILIKE '%' \|\| \$5 \|\| '%'`).
		WithArgs(from, to, "feed-1", domain.ArticleStatusNew, "release").
		WillReturnRows(rows)

	repo := NewArticleRepository(mock, logger.Logger)

	filter := &ArticleFilter{FeedID: "feed-1", Status: domain.ArticleStatusNew, Title: "release"}
	articles, err := repo.ListByDateRange(context.Background(), from, to, filter)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Go release", articles[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_MarkProcessed(t *testing.T) {
	t.Run("should update all given ids", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		ids := []string{"article-1", "article-2"}

		mock.ExpectExec(`UPDATE articles SET status = \$1`).
			WithArgs(domain.ArticleStatusProcessed, ids).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		repo := NewArticleRepository(mock, logger.Logger)
		require.NoError(t, repo.MarkProcessed(context.Background(), ids))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should no-op on empty ids", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewArticleRepository(mock, logger.Logger)
		require.NoError(t, repo.MarkProcessed(context.Background(), nil))
	})
}
