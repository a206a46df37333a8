package polls

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tgtools/votebot/internal/event"
	"github.com/tgtools/votebot/internal/models"
	"github.com/tgtools/votebot/internal/storage"
)

// Service orchestrates store operations into the create, vote, results,
// and search workflows. It holds no per-conversation state.
type Service struct {
	store       storage.Store
	events      event.Publisher
	botUsername string
}

func NewService(store storage.Store, events event.Publisher, botUsername string) *Service {
	if events == nil {
		events = event.NopPublisher{}
	}
	return &Service{store: store, events: events, botUsername: botUsername}
}

// CreateRequest carries the collected form fields for a new poll.
type CreateRequest struct {
	CreatorID   int64
	CreatorName string
	Title       string
	Options     []string
	ImageURL    string
}

// CreatedPoll is the outcome of a successful create: the poll, its ballot
// view, and the shareable deep link.
type CreatedPoll struct {
	Poll      *models.Poll
	View      View
	ShareLink string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreatedPoll, error) {
	pollID, err := s.store.CreatePoll(ctx, models.NewPoll{
		CreatorID:   req.CreatorID,
		CreatorName: req.CreatorName,
		Title:       req.Title,
		ImageURL:    req.ImageURL,
		Options:     req.Options,
	})
	if err != nil {
		return nil, err
	}
	poll := &models.Poll{
		ID:          pollID,
		CreatorID:   req.CreatorID,
		CreatorName: req.CreatorName,
		Title:       req.Title,
		ImageURL:    req.ImageURL,
		Options:     req.Options,
	}
	return &CreatedPoll{
		Poll:      poll,
		View:      BuildView(poll, nil, false),
		ShareLink: DeepLink(s.botUsername, pollID),
	}, nil
}

// VoteResult reports the outcome of a vote action together with the
// current results view, so the voter always sees live tallies whether or
// not the vote was accepted.
type VoteResult struct {
	Outcome storage.VoteOutcome
	Poll    *models.Poll
	View    View
}

func (s *Service) CastVote(ctx context.Context, pollID string, voter models.Voter, optionIndex int) (*VoteResult, error) {
	outcome, err := s.store.RecordVote(ctx, pollID, voter, optionIndex)
	if err != nil {
		return nil, err
	}

	if outcome == storage.VoteAccepted {
		// Best-effort: the vote is committed even if the event stream is down.
		e := event.VoteEvent{
			PollID:      pollID,
			VoterID:     voter.ID,
			OptionIndex: optionIndex,
			Timestamp:   time.Now().UTC(),
		}
		if err := s.events.PublishVote(ctx, e); err != nil {
			log.Printf("publish vote event: %v", err)
		}
	}

	poll, view, err := s.Results(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Outcome: outcome, Poll: poll, View: view}, nil
}

// Ballot renders the poll in ballot mode (labels only).
func (s *Service) Ballot(ctx context.Context, pollID string) (*models.Poll, View, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, View{}, err
	}
	counts, err := s.store.Tally(ctx, pollID)
	if err != nil {
		return nil, View{}, err
	}
	return poll, BuildView(poll, counts, false), nil
}

// Results renders the poll with current counts and percentages.
func (s *Service) Results(ctx context.Context, pollID string) (*models.Poll, View, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, View{}, err
	}
	counts, err := s.store.Tally(ctx, pollID)
	if err != nil {
		return nil, View{}, err
	}
	return poll, BuildView(poll, counts, true), nil
}

// SearchResult is one inline-search hit.
type SearchResult struct {
	ID          string
	Title       string
	Description string
	ShareText   string
}

func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	summaries, err := s.store.SearchPolls(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(summaries))
	for _, sum := range summaries {
		results = append(results, SearchResult{
			ID:          sum.ID,
			Title:       sum.Title,
			Description: fmt.Sprintf("Click to share poll: %s", sum.Title),
			ShareText:   fmt.Sprintf("Check out this poll: %s", DeepLink(s.botUsername, sum.ID)),
		})
	}
	return results, nil
}
