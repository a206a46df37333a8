package polls

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgtools/votebot/internal/event"
	"github.com/tgtools/votebot/internal/models"
	"github.com/tgtools/votebot/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.VoteEvent
}

func (r *recordingPublisher) PublishVote(_ context.Context, e event.VoteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "votebot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	pub := &recordingPublisher{}
	return NewService(store, pub, "votebot"), pub
}

func TestCreateReturnsBallotAndShareLink(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		CreatorID:   1,
		CreatorName: "alice",
		Title:       "Pick a color",
		Options:     []string{"Red", "Blue"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://t.me/votebot?start="+created.Poll.ID, created.ShareLink)
	assert.Contains(t, created.View.Text, "Pick a color")
	assert.Contains(t, created.View.Text, "Red\nBlue\n")
	assert.NotContains(t, created.View.Text, "votes", "ballot mode must not show counts")
}

func TestCreateTooFewOptions(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		CreatorID: 1,
		Title:     "Broken",
		Options:   []string{"only"},
	})
	assert.ErrorIs(t, err, storage.ErrTooFewOptions)
}

func TestCastVoteShowsLiveResultsEitherWay(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{
		CreatorID: 1, CreatorName: "alice",
		Title:   "Pick a color",
		Options: []string{"Red", "Blue"},
	})
	require.NoError(t, err)
	pollID := created.Poll.ID

	res, err := svc.CastVote(ctx, pollID, models.Voter{ID: 10, Name: "A"}, 0)
	require.NoError(t, err)
	assert.Equal(t, storage.VoteAccepted, res.Outcome)
	assert.Contains(t, res.View.Text, "*Red* - 1 votes (100.00%)")

	res, err = svc.CastVote(ctx, pollID, models.Voter{ID: 11, Name: "B"}, 1)
	require.NoError(t, err)
	assert.Equal(t, storage.VoteAccepted, res.Outcome)

	// Duplicate vote from A still returns the current tally.
	res, err = svc.CastVote(ctx, pollID, models.Voter{ID: 10, Name: "A"}, 0)
	require.NoError(t, err)
	assert.Equal(t, storage.VoteAlreadyCast, res.Outcome)
	assert.Contains(t, res.View.Text, "*Red* - 1 votes (50.00%)")
	assert.Contains(t, res.View.Text, "*Blue* - 1 votes (50.00%)")

	// Only the two accepted votes were published.
	require.Len(t, pub.events, 2)
	assert.Equal(t, pollID, pub.events[0].PollID)
	assert.Equal(t, int64(10), pub.events[0].VoterID)
	assert.Equal(t, int64(11), pub.events[1].VoterID)
}

func TestCastVoteUnknownPoll(t *testing.T) {
	svc, pub := newTestService(t)

	_, err := svc.CastVote(context.Background(), "missing", models.Voter{ID: 1}, 0)
	assert.ErrorIs(t, err, storage.ErrPollNotFound)
	assert.Empty(t, pub.events)
}

func TestResultsUnknownPoll(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Results(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrPollNotFound)
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{
		CreatorID: 1, CreatorName: "alice",
		Title:   "Favorite language",
		Options: []string{"Go", "Rust"},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{
		CreatorID: 1, CreatorName: "alice",
		Title:   "Lunch place",
		Options: []string{"Here", "There"},
	})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "language")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, created.Poll.ID, results[0].ID)
	assert.Equal(t, "Favorite language", results[0].Title)
	assert.Equal(t, "Click to share poll: Favorite language", results[0].Description)
	assert.Equal(t, "Check out this poll: https://t.me/votebot?start="+created.Poll.ID, results[0].ShareText)
}
