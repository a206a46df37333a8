package polls

import (
	"fmt"
	"strings"

	"github.com/tgtools/votebot/internal/models"
)

// Button is a selectable action attached to a poll message. Data is the
// opaque callback payload round-tripped through the delivery layer.
type Button struct {
	Label string
	Data  string
}

// View is a rendered poll: message text plus keyboard rows.
type View struct {
	Text     string
	Keyboard [][]Button
}

const (
	votePrefix    = "vote_"
	resultsPrefix = "results_"
)

// VoteData encodes a vote action for one option of one poll.
func VoteData(pollID string, optionIndex int) string {
	return fmt.Sprintf("%s%s_%d", votePrefix, pollID, optionIndex)
}

// ParseVoteData extracts the poll id and option index from a vote
// callback payload. Poll ids are UUIDs and never contain underscores.
func ParseVoteData(data string) (pollID string, optionIndex int, ok bool) {
	rest, found := strings.CutPrefix(data, votePrefix)
	if !found {
		return "", 0, false
	}
	i := strings.LastIndex(rest, "_")
	if i < 0 {
		return "", 0, false
	}
	var idx int
	if _, err := fmt.Sscanf(rest[i+1:], "%d", &idx); err != nil {
		return "", 0, false
	}
	return rest[:i], idx, true
}

// ResultsData encodes a request-results action for a poll.
func ResultsData(pollID string) string {
	return resultsPrefix + pollID
}

// ParseResultsData extracts the poll id from a results callback payload.
func ParseResultsData(data string) (pollID string, ok bool) {
	return strings.CutPrefix(data, resultsPrefix)
}

// BuildView renders a poll. In ballot mode each option shows only its
// label; in results mode it shows label, count, and percentage of the
// total, two decimals. The keyboard always carries one vote button per
// option and a trailing total-votes row.
func BuildView(p *models.Poll, counts map[int]int, resultsMode bool) View {
	total := 0
	for _, n := range counts {
		total += n
	}

	b := strings.Builder{}
	b.WriteString("📊 *")
	b.WriteString(p.Title)
	b.WriteString("*\n\n")

	var keyboard [][]Button
	for i, option := range p.Options {
		if resultsMode {
			count := counts[i]
			b.WriteString(fmt.Sprintf("*%s* - %d votes (%s)\n", option, count, formatPercent(count, total)))
		} else {
			b.WriteString(option)
			b.WriteString("\n")
		}
		keyboard = append(keyboard, []Button{{Label: option, Data: VoteData(p.ID, i)}})
	}

	keyboard = append(keyboard, []Button{{
		Label: fmt.Sprintf("Total Votes: %d", total),
		Data:  ResultsData(p.ID),
	}})

	return View{Text: b.String(), Keyboard: keyboard}
}

// BroadcastText wraps a rendered poll for a channel post: a creator
// attribution header above the poll and a bot signature below it.
func BroadcastText(p *models.Poll, v View, botUsername string) string {
	b := strings.Builder{}
	b.WriteString("*New Poll by ")
	b.WriteString(p.CreatorName)
	b.WriteString("*\n\n")
	b.WriteString(v.Text)
	b.WriteString("\n_This post is generated by @")
	b.WriteString(botUsername)
	b.WriteString("_")
	return b.String()
}

func formatPercent(count, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(count)/float64(total)*100)
}
