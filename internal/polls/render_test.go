package polls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgtools/votebot/internal/models"
)

func testPoll() *models.Poll {
	return &models.Poll{
		ID:      "5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f",
		Title:   "Pick a color",
		Options: []string{"Red", "Blue"},
	}
}

func TestBuildViewBallotMode(t *testing.T) {
	v := BuildView(testPoll(), nil, false)

	assert.Equal(t, "📊 *Pick a color*\n\nRed\nBlue\n", v.Text)
	require.Len(t, v.Keyboard, 3)
	assert.Equal(t, "Red", v.Keyboard[0][0].Label)
	assert.Equal(t, "vote_5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f_0", v.Keyboard[0][0].Data)
	assert.Equal(t, "vote_5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f_1", v.Keyboard[1][0].Data)
	assert.Equal(t, "Total Votes: 0", v.Keyboard[2][0].Label)
	assert.Equal(t, "results_5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f", v.Keyboard[2][0].Data)
}

func TestBuildViewResultsMode(t *testing.T) {
	p := &models.Poll{
		ID:      "id",
		Title:   "Numbers",
		Options: []string{"Three", "Seven"},
	}
	v := BuildView(p, map[int]int{0: 3, 1: 7}, true)

	assert.Contains(t, v.Text, "*Three* - 3 votes (30.00%)")
	assert.Contains(t, v.Text, "*Seven* - 7 votes (70.00%)")
	assert.Equal(t, "Total Votes: 10", v.Keyboard[len(v.Keyboard)-1][0].Label)
}

func TestBuildViewResultsModeNoVotes(t *testing.T) {
	v := BuildView(testPoll(), nil, true)

	assert.Contains(t, v.Text, "*Red* - 0 votes (0%)")
	assert.Contains(t, v.Text, "*Blue* - 0 votes (0%)")
	assert.Equal(t, "Total Votes: 0", v.Keyboard[len(v.Keyboard)-1][0].Label)
}

func TestBroadcastText(t *testing.T) {
	p := testPoll()
	p.CreatorName = "Alice Smith"
	v := BuildView(p, nil, false)

	text := BroadcastText(p, v, "votebot")
	assert.True(t, strings.HasPrefix(text, "*New Poll by Alice Smith*\n\n"))
	assert.Contains(t, text, "📊 *Pick a color*")
	assert.True(t, strings.HasSuffix(text, "_This post is generated by @votebot_"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0%", formatPercent(0, 0))
	assert.Equal(t, "0.00%", formatPercent(0, 10))
	assert.Equal(t, "30.00%", formatPercent(3, 10))
	assert.Equal(t, "33.33%", formatPercent(1, 3))
	assert.Equal(t, "100.00%", formatPercent(5, 5))
}

func TestVoteDataRoundTrip(t *testing.T) {
	data := VoteData("5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f", 4)
	pollID, idx, ok := ParseVoteData(data)
	require.True(t, ok)
	assert.Equal(t, "5f0c9d1e-8a9b-4c3d-9e2f-1a2b3c4d5e6f", pollID)
	assert.Equal(t, 4, idx)
}

func TestParseVoteDataRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "vote_", "vote_abc", "results_abc", "vote_abc_x"} {
		_, _, ok := ParseVoteData(data)
		assert.False(t, ok, "data %q", data)
	}
}

func TestParseResultsData(t *testing.T) {
	pollID, ok := ParseResultsData(ResultsData("some-id"))
	require.True(t, ok)
	assert.Equal(t, "some-id", pollID)

	_, ok = ParseResultsData("vote_some-id_0")
	assert.False(t, ok)
}

func TestDeepLink(t *testing.T) {
	link := DeepLink("votebot", "abc-123")
	assert.Equal(t, "https://t.me/votebot?start=abc-123", link)

	assert.Equal(t, "abc-123", PollIDFromPayload("abc-123"))
	assert.Equal(t, "abc-123", PollIDFromPayload(link))
	assert.Equal(t, "abc-123", PollIDFromPayload("  abc-123 "))
}
