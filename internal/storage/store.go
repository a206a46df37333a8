package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgtools/votebot/internal/models"
)

var (
	// ErrPollNotFound is returned when a poll id does not exist.
	ErrPollNotFound = errors.New("poll not found")
	// ErrOptionNotFound is returned when an option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrTooFewOptions is returned when a poll is created with fewer than
	// two options.
	ErrTooFewOptions = errors.New("poll requires at least two options")
)

// VoteOutcome reports whether a vote was recorded or rejected as a
// duplicate.
type VoteOutcome int

const (
	VoteAccepted VoteOutcome = iota
	VoteAlreadyCast
)

// Store is the persistence capability the poll service depends on.
// Implementations must guarantee at most one vote per (poll, voter) even
// under concurrent RecordVote calls.
type Store interface {
	// CreatePoll persists the poll and its options atomically and returns
	// the generated poll id.
	CreatePoll(ctx context.Context, p models.NewPoll) (string, error)
	// GetPoll returns poll metadata with options in creation order.
	GetPoll(ctx context.Context, pollID string) (*models.Poll, error)
	// RecordVote inserts the voter's choice unless the voter has already
	// voted on this poll, in which case it returns VoteAlreadyCast and
	// writes nothing.
	RecordVote(ctx context.Context, pollID string, voter models.Voter, optionIndex int) (VoteOutcome, error)
	// Tally returns vote counts grouped by option index. Options with no
	// votes are absent from the map.
	Tally(ctx context.Context, pollID string) (map[int]int, error)
	// SearchPolls matches titles containing the substring,
	// case-insensitively.
	SearchPolls(ctx context.Context, substring string) ([]models.PollSummary, error)
	Close() error
}

// WaitForDB pings the database until it is reachable or the deadline
// passes.
func WaitForDB(ctx context.Context, db *sql.DB) error {
	deadline := time.Now().Add(2 * time.Minute)
	for {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
