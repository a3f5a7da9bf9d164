package domain

import (
	"fmt"
	"time"
)

// DigestType is the covered date window class of a digest.
type DigestType string

const (
	DigestTypeDaily  DigestType = "daily"
	DigestTypeWeekly DigestType = "weekly"
	DigestTypeCustom DigestType = "custom"
)

// ValidDigestType reports whether t is one of the known digest types.
func ValidDigestType(t DigestType) bool {
	switch t {
	case DigestTypeDaily, DigestTypeWeekly, DigestTypeCustom:
		return true
	}
	return false
}

// DigestStatus is the lifecycle state of a digest record.
type DigestStatus string

const (
	DigestStatusDraft     DigestStatus = "draft"
	DigestStatusPublished DigestStatus = "published"
	DigestStatusFailed    DigestStatus = "failed"
)

// Digest is a generated summary document covering the articles of a date
// window. Immutable after creation except for status transitions.
type Digest struct {
	ID           string
	UserID       string
	Title        string
	Content      string
	ArticleCount int
	SourceDate   time.Time
	DigestType   DigestType
	RuleID       string
	Status       DigestStatus
	ErrorMessage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fingerprint identifies a unique digest build. At most one digest exists
// per fingerprint; concurrent builds for the same fingerprint converge to
// one winner.
type Fingerprint struct {
	SourceDate time.Time
	DigestType DigestType
	RuleID     string
}

// Key renders the fingerprint as a stable map/singleflight key.
func (fp Fingerprint) Key() string {
	return fmt.Sprintf("%s|%s|%s", fp.SourceDate.Format("2006-01-02"), fp.DigestType, fp.RuleID)
}

// DigestRule is the read-only selection and generation policy for a digest
// build.
type DigestRule struct {
	ID     string
	UserID string
	Name   string

	DigestType DigestType
	FeedIDs    []string
	Keywords   []string

	SummaryLength     int
	IncludeCategories bool
	IncludeKeywords   bool
	PromptTemplate    string

	ProviderID  *int64
	Model       string
	Temperature float64
	MaxTokens   int

	ScheduleTime string
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultDailyRule is the policy applied when no rule is configured: the
// previous day's articles, grouped by feed, with a keyword section.
func DefaultDailyRule() *DigestRule {
	return &DigestRule{
		Name:              "default",
		DigestType:        DigestTypeDaily,
		SummaryLength:     300,
		IncludeCategories: true,
		IncludeKeywords:   true,
		Temperature:       0.7,
		MaxTokens:         1500,
	}
}

// Window returns the [from, to) article selection window for a digest of
// the rule's type anchored at date (midnight, any zone).
func (r *DigestRule) Window(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch r.DigestType {
	case DigestTypeWeekly:
		return day.AddDate(0, 0, -6), day.AddDate(0, 0, 1)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}
