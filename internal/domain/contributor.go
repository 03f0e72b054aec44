package domain

import (
	"context"
	"time"
)

// Contributor is an end user performing annotation work. Credential
// verification happens outside this core; only profile data relevant to
// batch selection and the activity log lives here.
type Contributor struct {
	Username               string
	Email                  string
	City                   string
	FrequentlyWalkedCities []string
	Activities             []Activity
	CreatedAt              time.Time
}

// Activity is one entry of a contributor's activity log.
type Activity struct {
	Activity string    `json:"activity" bson:"activity"`
	Date     time.Time `json:"date" bson:"date"`
	Tag      string    `json:"tag" bson:"tag"`
}

// ContributorStore defines the operations issued against the contributor
// collection.
type ContributorStore interface {
	// Get retrieves a contributor by username, or nil if absent.
	Get(ctx context.Context, username string) (*Contributor, error)

	// Put inserts or replaces a contributor record.
	Put(ctx context.Context, c *Contributor) error

	// AppendActivity appends one entry to the contributor's activity log.
	AppendActivity(ctx context.Context, username string, a Activity) error
}
