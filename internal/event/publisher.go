package event

import (
	"context"
	"time"
)

// VoteEvent is published for every accepted vote, keyed by poll id so
// downstream consumers see votes for one poll in order.
type VoteEvent struct {
	PollID      string    `json:"poll_id"`
	VoterID     int64     `json:"voter_id"`
	OptionIndex int       `json:"option_index"`
	Timestamp   time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishVote(ctx context.Context, e VoteEvent) error
	Close() error
}

// NopPublisher is used when no event stream is configured.
type NopPublisher struct{}

func (NopPublisher) PublishVote(context.Context, VoteEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }
