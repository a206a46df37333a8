package worker

import (
	"context"
	"errors"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/riverqueue/river"

	"github.com/tgtools/votebot/internal/jobs"
	"github.com/tgtools/votebot/internal/polls"
	"github.com/tgtools/votebot/internal/storage"
	"github.com/tgtools/votebot/internal/telegram"
)

// BroadcastPollWorker posts a freshly created poll to its channel. The
// poll row is already committed; a failed send is retried by River and
// never rolls the poll back.
type BroadcastPollWorker struct {
	river.WorkerDefaults[jobs.BroadcastPollArgs]
	svc         *polls.Service
	bot         *tgbotapi.BotAPI
	botUsername string
}

func NewBroadcastPollWorker(svc *polls.Service, bot *tgbotapi.BotAPI, botUsername string) *BroadcastPollWorker {
	return &BroadcastPollWorker{svc: svc, bot: bot, botUsername: botUsername}
}

func (w *BroadcastPollWorker) Work(ctx context.Context, job *river.Job[jobs.BroadcastPollArgs]) error {
	args := job.Args

	poll, view, err := w.svc.Ballot(ctx, args.PollID)
	if errors.Is(err, storage.ErrPollNotFound) {
		// Deleted between enqueue and broadcast; nothing to post.
		log.Printf("broadcast: poll %s no longer exists", args.PollID)
		return nil
	}
	if err != nil {
		return err
	}

	view.Text = polls.BroadcastText(poll, view, w.botUsername)
	if err := telegram.SendPoll(w.bot, args.ChannelID, poll, view); err != nil {
		log.Printf("channel post error: %v", err)
		return err
	}
	return nil
}
