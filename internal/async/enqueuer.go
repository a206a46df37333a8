package async

import (
	"context"

	"github.com/riverqueue/river"

	"github.com/tgtools/votebot/internal/jobs"
)

// Enqueuer abstracts async job enqueueing for the service.
// Implementations should be safe for concurrent use.
type Enqueuer interface {
	// EnqueueBroadcastPoll schedules a job to post the poll to its channel.
	EnqueueBroadcastPoll(ctx context.Context, args jobs.BroadcastPollArgs) error
	Close()
}

type RiverEnqueuer[TTx any] struct {
	client *river.Client[TTx]
}

// NewRiverEnqueuer wraps an existing River client (initialized by the service) for enqueueing jobs.
func NewRiverEnqueuer[TTx any](client *river.Client[TTx]) *RiverEnqueuer[TTx] {
	return &RiverEnqueuer[TTx]{client: client}
}

// Close is a no-op because the lifecycle of the underlying River client and DB pool
// is managed by the service.
func (e *RiverEnqueuer[TTx]) Close() {}

func (e *RiverEnqueuer[TTx]) EnqueueBroadcastPoll(ctx context.Context, args jobs.BroadcastPollArgs) error {
	// Broadcast is best-effort; a few retries cover transient Telegram errors.
	opts := &river.InsertOpts{MaxAttempts: 3}
	_, err := e.client.Insert(ctx, args, opts)
	return err
}
