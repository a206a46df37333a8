package polls

import (
	"fmt"
	"strings"
)

// DeepLink builds the shareable entry link that opens the bot on a poll.
func DeepLink(botUsername, pollID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, pollID)
}

// PollIDFromPayload extracts a poll id from a /start payload. It accepts
// both the bare id and a full deep link pasted back at the bot.
func PollIDFromPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if i := strings.LastIndex(payload, "?start="); i >= 0 {
		payload = payload[i+len("?start="):]
	}
	return payload
}
