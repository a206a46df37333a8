// Package dialog holds the state machine for the multi-step poll creation
// conversation: title, then options, then an optional image.
package dialog

import (
	"strings"
	"sync"
	"time"
)

type State int

const (
	StateAwaitingTitle State = iota + 1
	StateAwaitingOptions
	StateAwaitingImage
)

// Form is the transient per-conversation input collected before the poll
// exists. Earlier fields survive re-prompts of later steps.
type Form struct {
	State     State
	Title     string
	Options   []string
	ImageURL  string
	UpdatedAt time.Time
}

type key struct {
	chatID int64
	userID int64
}

// Store keeps in-flight forms keyed by (chat, user). Entries expire after
// the TTL; Sweep evicts them so the map stays bounded. All reads hand out
// snapshots and all mutations go through Update, so concurrent messages
// from one conversation cannot race on a form.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	forms map[key]*Form
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, forms: make(map[key]*Form)}
}

// Begin starts (or restarts) the create conversation.
func (s *Store) Begin(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[key{chatID, userID}] = &Form{State: StateAwaitingTitle, UpdatedAt: time.Now()}
}

// Get returns a snapshot of the in-flight form, if any and not expired.
func (s *Store) Get(chatID, userID int64) (Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{chatID, userID}
	f, ok := s.forms[k]
	if !ok {
		return Form{}, false
	}
	if time.Since(f.UpdatedAt) > s.ttl {
		delete(s.forms, k)
		return Form{}, false
	}
	return *f, true
}

// Update applies fn to the form under the store's lock and refreshes its
// expiry. It reports whether a live form existed.
func (s *Store) Update(chatID, userID int64, fn func(*Form)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{chatID, userID}
	f, ok := s.forms[k]
	if !ok {
		return false
	}
	if time.Since(f.UpdatedAt) > s.ttl {
		delete(s.forms, k)
		return false
	}
	fn(f)
	f.UpdatedAt = time.Now()
	return true
}

// End discards the form, completed or cancelled.
func (s *Store) End(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, key{chatID, userID})
}

// Sweep evicts expired forms and reports how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, f := range s.forms {
		if now.Sub(f.UpdatedAt) > s.ttl {
			delete(s.forms, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of in-flight forms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// ParseOptions splits newline-separated option input, trimming whitespace
// and discarding empty lines.
func ParseOptions(text string) []string {
	var options []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			options = append(options, line)
		}
	}
	return options
}
