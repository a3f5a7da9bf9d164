package domain

import "time"

// FetchStatus is the outcome class of the most recent fetch of a feed.
type FetchStatus string

const (
	FetchStatusPending FetchStatus = "pending"
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusFailure FetchStatus = "failure"
)

// Feed is a configured RSS/Atom source tracked for health and article yield.
// The fetch-status and failure-counter fields are owned by the health
// tracker; everything else is configuration.
type Feed struct {
	ID          string
	URL         string
	CategoryID  *int64
	Title       string
	Description string
	Logo        string
	IsActive    bool

	LastFetchAt           *time.Time
	LastFetchStatus       FetchStatus
	LastFetchError        *string
	LastSuccessfulFetchAt *time.Time
	TotalArticlesCount    int
	ConsecutiveFailures   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthState classifies a feed by its consecutive failure count.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthFailing  HealthState = "failing"
)

// HealthStateFor derives the health state from a consecutive failure count.
// degradedAt and failingAt are the low and high thresholds; failingAt must
// be >= degradedAt.
func HealthStateFor(consecutiveFailures, degradedAt, failingAt int) HealthState {
	switch {
	case consecutiveFailures >= failingAt:
		return HealthFailing
	case consecutiveFailures >= degradedAt:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

// HealthState returns the feed's current health state for the given
// thresholds.
func (f *Feed) HealthState(degradedAt, failingAt int) HealthState {
	return HealthStateFor(f.ConsecutiveFailures, degradedAt, failingAt)
}
