package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tgtools/votebot/internal/models"
	"github.com/tgtools/votebot/internal/polls"
)

// Markup converts a rendered view's keyboard into Telegram inline markup.
func Markup(v polls.View) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(v.Keyboard))
	for _, row := range v.Keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SendPoll posts a poll view to a chat, as a photo with caption when the
// poll has an image and as a plain message otherwise.
func SendPoll(bot *tgbotapi.BotAPI, chatID int64, p *models.Poll, v polls.View) error {
	markup := Markup(v)
	if p.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(p.ImageURL))
		photo.Caption = v.Text
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = markup
		_, err := bot.Send(photo)
		return err
	}
	msg := tgbotapi.NewMessage(chatID, v.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	_, err := bot.Send(msg)
	return err
}
