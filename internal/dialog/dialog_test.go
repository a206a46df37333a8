package dialog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormProgression(t *testing.T) {
	s := NewStore(time.Minute)

	s.Begin(10, 20)
	f, ok := s.Get(10, 20)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingTitle, f.State)

	ok = s.Update(10, 20, func(f *Form) {
		f.Title = "Pick a color"
		f.State = StateAwaitingOptions
	})
	require.True(t, ok)

	got, ok := s.Get(10, 20)
	require.True(t, ok)
	assert.Equal(t, "Pick a color", got.Title)
	assert.Equal(t, StateAwaitingOptions, got.State)

	// Re-prompting for options keeps the title.
	s.Update(10, 20, func(*Form) {})
	got, ok = s.Get(10, 20)
	require.True(t, ok)
	assert.Equal(t, "Pick a color", got.Title)

	s.End(10, 20)
	_, ok = s.Get(10, 20)
	assert.False(t, ok)
	assert.False(t, s.Update(10, 20, func(*Form) {}))
}

func TestGetReturnsSnapshot(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, 1)
	s.Update(1, 1, func(f *Form) { f.Title = "original" })

	f, ok := s.Get(1, 1)
	require.True(t, ok)
	f.Title = "scribbled over"

	got, ok := s.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, "original", got.Title)
}

func TestConcurrentUpdatesDoNotCorruptForm(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, 1)

	// Near-simultaneous messages from the same conversation, as a
	// webhook server delivers them.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update(1, 1, func(f *Form) {
				f.Title = fmt.Sprintf("title-%d", i)
				f.State = StateAwaitingOptions
				f.Options = []string{"Red", "Blue"}
			})
		}(i)
	}
	wg.Wait()

	got, ok := s.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingOptions, got.State)
	assert.Equal(t, []string{"Red", "Blue"}, got.Options)
	assert.Regexp(t, `^title-[0-7]$`, got.Title)
}

func TestFormsAreScopedPerChatAndUser(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, 1)
	s.Begin(1, 2)
	s.Begin(2, 1)
	s.Update(1, 1, func(f *Form) { f.Title = "first" })
	s.Update(1, 2, func(f *Form) { f.Title = "second" })
	s.Update(2, 1, func(f *Form) { f.Title = "third" })

	f, ok := s.Get(1, 2)
	require.True(t, ok)
	assert.Equal(t, "second", f.Title)
	assert.Equal(t, 3, s.Len())
}

func TestExpiredFormIsGone(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.Begin(1, 1)
	s.forms[key{1, 1}].UpdatedAt = time.Now().Add(-time.Second)

	_, ok := s.Get(1, 1)
	assert.False(t, ok)

	s.Begin(1, 1)
	s.forms[key{1, 1}].UpdatedAt = time.Now().Add(-time.Second)
	assert.False(t, s.Update(1, 1, func(*Form) {}))
}

func TestSweep(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, 1)
	s.Begin(2, 2)
	s.forms[key{2, 2}].UpdatedAt = time.Now().Add(-2 * time.Minute)

	removed := s.Sweep(time.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get(1, 1)
	assert.True(t, ok)
}

func TestParseOptions(t *testing.T) {
	assert.Equal(t, []string{"Red", "Blue", "Green"}, ParseOptions("Red\n  Blue \n\nGreen\n"))
	assert.Equal(t, []string{"one"}, ParseOptions("one"))
	assert.Nil(t, ParseOptions("  \n \n"))
}
