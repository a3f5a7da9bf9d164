package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rss-digest/domain"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock satisfies
// it, which keeps the SQL testable without a live database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// FeedRepository handles feed persistence.
type FeedRepository interface {
	Create(ctx context.Context, feed *domain.Feed) error
	GetByID(ctx context.Context, id string) (*domain.Feed, error)
	GetByURL(ctx context.Context, url string) (*domain.Feed, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Feed, error)
	ListDue(ctx context.Context, now time.Time) ([]*domain.Feed, error)
	Update(ctx context.Context, feed *domain.Feed) error
	UpdateFetchState(ctx context.Context, feed *domain.Feed, nextFetchAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ArticleRepository handles article persistence.
type ArticleRepository interface {
	InsertBatch(ctx context.Context, articles []*domain.Article) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	ListByDateRange(ctx context.Context, from, to time.Time, filter *ArticleFilter) ([]*domain.ArticleWithFeed, error)
	MarkProcessed(ctx context.Context, ids []string) error
}

// ArticleFilter narrows an article listing. Zero-valued fields are
// ignored; Title matches as a case-insensitive substring.
type ArticleFilter struct {
	FeedID      string
	Status      domain.ArticleStatus
	Title       string
	CategoryIDs []int64
}

// DigestFilter narrows a digest listing. Zero-valued fields are ignored;
// From is inclusive and To exclusive on source_date, Title matches as a
// case-insensitive substring.
type DigestFilter struct {
	DigestType domain.DigestType
	Status     domain.DigestStatus
	From       time.Time
	To         time.Time
	Title      string
}

// DigestRepository handles digest and digest rule persistence.
type DigestRepository interface {
	CreateDigest(ctx context.Context, digest *domain.Digest) error
	GetDigestByID(ctx context.Context, id string) (*domain.Digest, error)
	GetDigestByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Digest, error)
	ListDigests(ctx context.Context, filter DigestFilter, limit, offset int) ([]*domain.Digest, error)
	UpdateDigestStatus(ctx context.Context, id string, status domain.DigestStatus) error
	DeleteDigest(ctx context.Context, id string) error

	CreateRule(ctx context.Context, rule *domain.DigestRule) error
	GetRuleByID(ctx context.Context, id string) (*domain.DigestRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]*domain.DigestRule, error)
	UpdateRule(ctx context.Context, rule *domain.DigestRule) error
	DeleteRule(ctx context.Context, id string) error
}

// ProviderRepository handles LLM provider persistence. API keys are
// encrypted at rest and decrypted on read.
type ProviderRepository interface {
	Create(ctx context.Context, provider *domain.Provider) error
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
	List(ctx context.Context) ([]*domain.Provider, error)
	Update(ctx context.Context, provider *domain.Provider) error
	Delete(ctx context.Context, id int64) error
	TouchVerified(ctx context.Context, id int64, verifiedAt time.Time) error
}
