package models

// Poll is a titled question with an ordered, immutable list of options.
// Options are identified by their zero-based position.
type Poll struct {
	ID          string
	CreatorID   int64
	CreatorName string
	Title       string
	ImageURL    string
	Options     []string
}

// NewPoll carries the fields needed to create a poll. The id is assigned
// by the store.
type NewPoll struct {
	CreatorID   int64
	CreatorName string
	Title       string
	ImageURL    string
	Options     []string
}

// PollSummary is the search-result projection of a poll.
type PollSummary struct {
	ID    string
	Title string
}

// Voter identifies the user casting a vote.
type Voter struct {
	ID   int64
	Name string
}
