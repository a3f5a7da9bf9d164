package domain

import "time"

// ArticleStatus tracks whether an article has been processed downstream.
type ArticleStatus string

const (
	ArticleStatusNew       ArticleStatus = "new"
	ArticleStatusProcessed ArticleStatus = "processed"
)

// Article is a normalized entry harvested from a feed. The (FeedID, Link)
// pair is the natural dedup key: re-fetching an already-seen link must not
// create a second row.
type Article struct {
	ID            string
	FeedID        string
	Title         string
	Summary       string
	Link          string
	ThumbnailURL  string
	PublishedDate time.Time
	Status        ArticleStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArticleWithFeed carries the owning feed's display title alongside the
// article, for digest grouping and list responses.
type ArticleWithFeed struct {
	Article
	FeedTitle string
}
