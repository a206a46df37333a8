package telegram

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/tgtools/votebot/internal/async"
	"github.com/tgtools/votebot/internal/dialog"
	"github.com/tgtools/votebot/internal/jobs"
	"github.com/tgtools/votebot/internal/models"
	"github.com/tgtools/votebot/internal/polls"
	"github.com/tgtools/votebot/internal/ratelimit"
	"github.com/tgtools/votebot/internal/storage"
)

const (
	welcomeCaption = "👋 *Welcome to the Vote Bot!*\n\n" +
		"I can help you create custom polls with images and send them to your channels and groups.\n\n" +
		"Use the buttons below to get started."

	promptTitle   = "What's the title of your poll? (e.g., *What's your favorite color?*)"
	promptOptions = "Great! Now send me the options, one per line."
	promptImage   = "Almost done. Send an image URL for your poll, or /skip."
	promptRetry   = "Please provide at least two options. Try again."

	msgVoteAccepted = "Vote received! Here are the live results."
	msgAlreadyVoted = "You have already voted in this poll. Here are the live results."
	msgPollMissing  = "This poll doesn't exist."
	msgFlooding     = "You're doing that too often. Please slow down."
	msgNotAllowed   = "Sorry, only the bot admin can create polls."
	msgCancelled    = "Poll creation cancelled."
	msgCreateFailed = "Something went wrong while creating the poll. Please try /create again."
)

// Options is the static configuration the handler needs.
type Options struct {
	BotUsername     string
	ChannelID       int64
	AdminID         int64
	WelcomeImageURL string
}

// AllowCreate reports whether the user may start poll creation. A zero
// AdminID leaves creation open to everyone.
func (o Options) AllowCreate(userID int64) bool {
	return o.AdminID == 0 || o.AdminID == userID
}

// Handler routes Telegram updates into the poll service. When an Enqueuer
// is present the channel broadcast goes through the job queue; otherwise
// the handler posts to the channel directly, best-effort.
type Handler struct {
	bot     *tgbotapi.BotAPI
	svc     *polls.Service
	dialogs *dialog.Store
	limiter *ratelimit.Limiter
	enq     async.Enqueuer
	opts    Options
}

func NewHandler(bot *tgbotapi.BotAPI, svc *polls.Service, dialogs *dialog.Store, limiter *ratelimit.Limiter, enq async.Enqueuer, opts Options) *Handler {
	return &Handler{bot: bot, svc: svc, dialogs: dialogs, limiter: limiter, enq: enq, opts: opts}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		h.HandleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.HandleCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		h.HandleInlineQuery(ctx, update.InlineQuery)
	}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			if payload := msg.CommandArguments(); payload != "" {
				h.handleDeepLink(ctx, msg, polls.PollIDFromPayload(payload))
				return
			}
			h.sendWelcome(msg.Chat.ID)
		case "help":
			h.sendWelcome(msg.Chat.ID)
		case "create":
			h.startCreate(msg.Chat.ID, msg.From.ID)
		case "cancel":
			h.dialogs.End(msg.Chat.ID, msg.From.ID)
			h.reply(msg.Chat.ID, msgCancelled)
		case "skip":
			var completed *dialog.Form
			h.dialogs.Update(msg.Chat.ID, msg.From.ID, func(form *dialog.Form) {
				if form.State != dialog.StateAwaitingImage {
					return
				}
				form.ImageURL = ""
				snapshot := *form
				completed = &snapshot
			})
			if completed != nil {
				h.finishCreate(ctx, msg, *completed)
			}
		}
		return
	}

	if msg.Text == "" {
		return
	}
	h.stepDialog(ctx, msg)
}

func (h *Handler) startCreate(chatID, userID int64) {
	if !h.opts.AllowCreate(userID) {
		h.reply(chatID, msgNotAllowed)
		return
	}
	if !h.limiter.Allow(userID, time.Now()) {
		h.reply(chatID, msgFlooding)
		return
	}
	h.dialogs.Begin(chatID, userID)
	h.reply(chatID, promptTitle)
}

// stepDialog advances the create conversation by one message. The whole
// transition runs under the dialog store's lock so near-simultaneous
// messages from one conversation cannot interleave on the form.
func (h *Handler) stepDialog(ctx context.Context, msg *tgbotapi.Message) {
	var (
		prompt    string
		completed *dialog.Form
	)
	ok := h.dialogs.Update(msg.Chat.ID, msg.From.ID, func(form *dialog.Form) {
		switch form.State {
		case dialog.StateAwaitingTitle:
			form.Title = strings.TrimSpace(msg.Text)
			form.State = dialog.StateAwaitingOptions
			prompt = promptOptions

		case dialog.StateAwaitingOptions:
			options := dialog.ParseOptions(msg.Text)
			if len(options) < 2 {
				// Title stays; only the options step repeats.
				prompt = promptRetry
				return
			}
			form.Options = options
			form.State = dialog.StateAwaitingImage
			prompt = promptImage

		case dialog.StateAwaitingImage:
			form.ImageURL = strings.TrimSpace(msg.Text)
			snapshot := *form
			completed = &snapshot
		}
	})
	if !ok {
		return
	}
	if completed != nil {
		h.finishCreate(ctx, msg, *completed)
		return
	}
	if prompt != "" {
		h.reply(msg.Chat.ID, prompt)
	}
}

func (h *Handler) finishCreate(ctx context.Context, msg *tgbotapi.Message, form dialog.Form) {
	h.dialogs.End(msg.Chat.ID, msg.From.ID)

	created, err := h.svc.Create(ctx, polls.CreateRequest{
		CreatorID:   msg.From.ID,
		CreatorName: displayName(msg.From),
		Title:       form.Title,
		Options:     form.Options,
		ImageURL:    form.ImageURL,
	})
	if err != nil {
		log.Printf("create poll error: %v", err)
		h.reply(msg.Chat.ID, msgCreateFailed)
		return
	}

	h.reply(msg.Chat.ID, "Poll created! Share this link:\n"+created.ShareLink)
	h.broadcast(ctx, created)
}

// broadcast posts the new poll to the configured channel. A failure here
// is logged and never unwinds the committed poll.
func (h *Handler) broadcast(ctx context.Context, created *polls.CreatedPoll) {
	if h.opts.ChannelID == 0 {
		return
	}
	if h.enq != nil {
		args := jobs.BroadcastPollArgs{PollID: created.Poll.ID, ChannelID: h.opts.ChannelID}
		if err := h.enq.EnqueueBroadcastPoll(ctx, args); err != nil {
			log.Printf("enqueue broadcast poll error: %v", err)
		}
		return
	}
	view := created.View
	view.Text = polls.BroadcastText(created.Poll, view, h.opts.BotUsername)
	if err := SendPoll(h.bot, h.opts.ChannelID, created.Poll, view); err != nil {
		log.Printf("channel post error: %v", err)
	}
}

func (h *Handler) handleDeepLink(ctx context.Context, msg *tgbotapi.Message, pollID string) {
	poll, view, err := h.svc.Ballot(ctx, pollID)
	if errors.Is(err, storage.ErrPollNotFound) {
		h.reply(msg.Chat.ID, msgPollMissing)
		return
	}
	if err != nil {
		log.Printf("deep link lookup error: %v", err)
		return
	}
	if err := SendPoll(h.bot, msg.Chat.ID, poll, view); err != nil {
		log.Printf("send poll error: %v", err)
	}
}

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}

	switch cq.Data {
	case "create_poll":
		h.answer(cq.ID, "")
		if cq.Message != nil {
			h.startCreate(cq.Message.Chat.ID, cq.From.ID)
		}
		return
	case "help":
		h.answer(cq.ID, "")
		if cq.Message != nil {
			h.sendWelcome(cq.Message.Chat.ID)
		}
		return
	}

	if pollID, optionIndex, ok := polls.ParseVoteData(cq.Data); ok {
		h.handleVote(ctx, cq, pollID, optionIndex)
		return
	}
	if pollID, ok := polls.ParseResultsData(cq.Data); ok {
		h.handleResults(ctx, cq, pollID)
	}
}

func (h *Handler) handleVote(ctx context.Context, cq *tgbotapi.CallbackQuery, pollID string, optionIndex int) {
	if !h.limiter.Allow(cq.From.ID, time.Now()) {
		h.alert(cq.ID, msgFlooding)
		return
	}

	voter := models.Voter{ID: cq.From.ID, Name: displayName(cq.From)}
	res, err := h.svc.CastVote(ctx, pollID, voter, optionIndex)
	if errors.Is(err, storage.ErrPollNotFound) || errors.Is(err, storage.ErrOptionNotFound) {
		h.alert(cq.ID, msgPollMissing)
		return
	}
	if err != nil {
		log.Printf("cast vote error: %v", err)
		h.answer(cq.ID, "")
		return
	}

	line := msgVoteAccepted
	if res.Outcome == storage.VoteAlreadyCast {
		line = msgAlreadyVoted
	}
	h.answer(cq.ID, line)
	h.editView(cq, line+"\n\n"+res.View.Text, res.View)
}

func (h *Handler) handleResults(ctx context.Context, cq *tgbotapi.CallbackQuery, pollID string) {
	_, view, err := h.svc.Results(ctx, pollID)
	if errors.Is(err, storage.ErrPollNotFound) {
		h.alert(cq.ID, msgPollMissing)
		return
	}
	if err != nil {
		log.Printf("results lookup error: %v", err)
		h.answer(cq.ID, "")
		return
	}
	h.answer(cq.ID, "")
	h.editView(cq, "*Live Results*\n\n"+view.Text, view)
}

func (h *Handler) HandleInlineQuery(ctx context.Context, iq *tgbotapi.InlineQuery) {
	var results []interface{}

	if query := strings.TrimSpace(iq.Query); query != "" {
		found, err := h.svc.Search(ctx, query)
		if err != nil {
			log.Printf("search polls error: %v", err)
		}
		for _, r := range found {
			article := tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.ShareText)
			article.Description = r.Description
			results = append(results, article)
		}
	}

	create := tgbotapi.NewInlineQueryResultArticle(uuid.New().String(), "Create a New Poll", "/create")
	create.Description = "Start a new poll from scratch."
	results = append(results, create)

	answer := tgbotapi.InlineConfig{
		InlineQueryID: iq.ID,
		Results:       results,
		IsPersonal:    true,
	}
	if _, err := h.bot.Request(answer); err != nil {
		log.Printf("answer inline query error: %v", err)
	}
}

func (h *Handler) sendWelcome(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Create Poll", "create_poll")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", "help")),
	)
	if h.opts.WelcomeImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(h.opts.WelcomeImageURL))
		photo.Caption = welcomeCaption
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = keyboard
		if _, err := h.bot.Send(photo); err != nil {
			log.Printf("send welcome error: %v", err)
		}
		return
	}
	msg := tgbotapi.NewMessage(chatID, welcomeCaption)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("send welcome error: %v", err)
	}
}

// editView rewrites the message the button belongs to. Poll posts are
// photos with captions; results requested on plain messages edit the text.
func (h *Handler) editView(cq *tgbotapi.CallbackQuery, text string, v polls.View) {
	if cq.Message == nil {
		return
	}
	markup := Markup(v)
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	if cq.Message.Caption != "" {
		edit := tgbotapi.NewEditMessageCaption(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.ReplyMarkup = &markup
		if _, err := h.bot.Send(edit); err != nil {
			log.Printf("edit caption error: %v", err)
		}
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = &markup
	if _, err := h.bot.Send(edit); err != nil {
		log.Printf("edit message error: %v", err)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("send message error: %v", err)
	}
}

func (h *Handler) answer(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("answer callback error: %v", err)
	}
}

func (h *Handler) alert(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		log.Printf("answer callback error: %v", err)
	}
}

func displayName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name = name + " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}
