// Package social defines the outbound notification transport: posting,
// boosting, and binary polls. The core depends only on this capability
// set, not on any specific provider.
package social

import (
	"context"
	"time"
)

// Status is a posted notification.
type Status struct {
	ID string `json:"id"`
}

// Poll describes a poll to attach to a post. Construct a fresh Options
// slice per call; polls are never shared.
type Poll struct {
	Options    []string
	ExpiresIn  time.Duration
	HideTotals bool
}

// PollOption is one tallied option of a finished (or running) poll.
type PollOption struct {
	Title string `json:"title"`
	Votes int    `json:"votes_count"`
}

// Client is the minimal outbound capability set.
type Client interface {
	// Post publishes text, optionally as a reply and optionally carrying
	// a poll. Returns the created status.
	Post(ctx context.Context, text, replyTo string, poll *Poll) (Status, error)

	// Boost reposts a status on this account.
	Boost(ctx context.Context, statusID string) (Status, error)

	// Unboost retracts a previous boost.
	Unboost(ctx context.Context, statusID string) error

	// PollResult fetches the tallied options of the poll attached to a
	// status.
	PollResult(ctx context.Context, statusID string) ([]PollOption, error)
}

// YesNoPoll constructs a fresh binary poll.
func YesNoPoll(expiresIn time.Duration) *Poll {
	return &Poll{
		Options:   []string{"Yes", "No"},
		ExpiresIn: expiresIn,
	}
}
