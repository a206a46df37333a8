package jobs

// BroadcastPollArgs defines the arguments for a job that posts a freshly
// created poll to the configured channel.
// This type is shared between service (for enqueue) and worker (for processing).
type BroadcastPollArgs struct {
	PollID    string `json:"poll_id"`
	ChannelID int64  `json:"channel_id"`
}

// Kind implements river.JobArgs to identify this job type.
func (BroadcastPollArgs) Kind() string { return "broadcast_poll" }
