package assistant

import (
	"strconv"
	"strings"
	"sync"

	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

// Changes carries the field edits a selector action will apply.
// Empty fields mean "leave unchanged".
type Changes struct {
	Content   string
	DueString string
}

// PendingSelection is an outstanding disambiguation for one chat: the
// action to run, its pending changes, and the candidates in the order
// they were numbered in the reply.
type PendingSelection struct {
	Kind    actionKind
	Changes Changes
	Options []todoist.Task
}

// ReplyOutcome classifies a chat's reply to a pending selection.
type ReplyOutcome int

const (
	// ReplyNone means the chat has no pending selection.
	ReplyNone ReplyOutcome = iota
	// ReplyCanceled means the user canceled; the entry is removed.
	ReplyCanceled
	// ReplyNotNumber means the reply was not a plain integer; the entry stays.
	ReplyNotNumber
	// ReplyOutOfRange means the number was outside the candidate list; the entry stays.
	ReplyOutOfRange
	// ReplyChosen means a valid candidate was picked; the entry is removed.
	ReplyChosen
)

var cancelWords = map[string]bool{
	"cancel":     true,
	"stop":       true,
	"nevermind":  true,
	"never mind": true,
}

// PendingStore holds at most one pending selection per chat. The
// check-then-consume transition runs under the store lock so a chat's
// reply cannot race a concurrent delivery for the same chat.
type PendingStore struct {
	mu     sync.Mutex
	byChat map[int64]PendingSelection
}

// NewPendingStore creates an empty store.
func NewPendingStore() *PendingStore {
	return &PendingStore{byChat: make(map[int64]PendingSelection)}
}

// Put registers a pending selection for a chat, replacing any prior one.
func (s *PendingStore) Put(chatID int64, selection PendingSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat[chatID] = selection
}

// Has reports whether a chat has a pending selection.
func (s *PendingStore) Has(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byChat[chatID]
	return ok
}

// Resolve applies a chat's reply to its pending selection. Cancel words
// and a valid 1-based choice consume the entry; anything else leaves it
// in place. The chosen index is meaningful only for ReplyChosen.
func (s *PendingStore) Resolve(chatID int64, reply string) (PendingSelection, int, ReplyOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selection, ok := s.byChat[chatID]
	if !ok {
		return PendingSelection{}, 0, ReplyNone
	}

	normalized := strings.ToLower(strings.TrimSpace(reply))
	if cancelWords[normalized] {
		delete(s.byChat, chatID)
		return selection, 0, ReplyCanceled
	}

	choice, err := strconv.Atoi(normalized)
	if err != nil || !isAllDigits(normalized) {
		return selection, 0, ReplyNotNumber
	}
	if choice < 1 || choice > len(selection.Options) {
		return selection, 0, ReplyOutOfRange
	}

	delete(s.byChat, chatID)
	return selection, choice - 1, ReplyChosen
}

// Reset drops all pending selections. Exposed for test isolation.
func (s *PendingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat = make(map[int64]PendingSelection)
}
