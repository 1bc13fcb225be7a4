package assistant

import (
	"testing"

	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

func newTestSelection() PendingSelection {
	return PendingSelection{
		Kind:    actionComplete,
		Options: []todoist.Task{task(101, "Buy milk"), task(102, "Buy oat milk")},
	}
}

func TestPendingStoreResolveNoEntry(t *testing.T) {
	store := NewPendingStore()

	if _, _, outcome := store.Resolve(1, "1"); outcome != ReplyNone {
		t.Errorf("Resolve on empty store = %v, want ReplyNone", outcome)
	}
}

func TestPendingStoreCancelWords(t *testing.T) {
	for _, word := range []string{"cancel", "STOP", "nevermind", "Never Mind", " cancel "} {
		t.Run(word, func(t *testing.T) {
			store := NewPendingStore()
			store.Put(1, newTestSelection())

			_, _, outcome := store.Resolve(1, word)
			if outcome != ReplyCanceled {
				t.Fatalf("Resolve(%q) = %v, want ReplyCanceled", word, outcome)
			}
			if store.Has(1) {
				t.Error("entry should be removed after cancel")
			}
		})
	}
}

func TestPendingStoreNonNumericKeepsEntry(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())

	_, _, outcome := store.Resolve(1, "the first one")
	if outcome != ReplyNotNumber {
		t.Fatalf("Resolve = %v, want ReplyNotNumber", outcome)
	}
	if !store.Has(1) {
		t.Error("entry must survive a non-numeric reply")
	}
}

func TestPendingStoreOutOfRangeKeepsEntry(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())

	for _, reply := range []string{"0", "3", "99"} {
		_, _, outcome := store.Resolve(1, reply)
		if outcome != ReplyOutOfRange {
			t.Errorf("Resolve(%q) = %v, want ReplyOutOfRange", reply, outcome)
		}
		if !store.Has(1) {
			t.Fatalf("entry must survive out-of-range reply %q", reply)
		}
	}
}

func TestPendingStoreValidChoiceConsumesEntry(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())

	selection, index, outcome := store.Resolve(1, " 2 ")
	if outcome != ReplyChosen {
		t.Fatalf("Resolve = %v, want ReplyChosen", outcome)
	}
	if index != 1 {
		t.Errorf("index = %d, want 1", index)
	}
	if selection.Options[index].ID != 102 {
		t.Errorf("chosen task = %d, want 102", selection.Options[index].ID)
	}
	if store.Has(1) {
		t.Error("entry should be removed after a valid choice")
	}
}

func TestPendingStoreSignedNumberIsNotAChoice(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())

	if _, _, outcome := store.Resolve(1, "+1"); outcome != ReplyNotNumber {
		t.Errorf("Resolve(+1) = %v, want ReplyNotNumber", outcome)
	}
}

func TestPendingStoreLastEntryWins(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())
	store.Put(1, PendingSelection{
		Kind:    actionEdit,
		Options: []todoist.Task{task(201, "Write report")},
	})

	selection, index, outcome := store.Resolve(1, "1")
	if outcome != ReplyChosen {
		t.Fatalf("Resolve = %v, want ReplyChosen", outcome)
	}
	if selection.Kind != actionEdit || selection.Options[index].ID != 201 {
		t.Errorf("resolved selection = %+v, want the replacement entry", selection)
	}
}

func TestPendingStoreIndependentChats(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())

	if _, _, outcome := store.Resolve(2, "1"); outcome != ReplyNone {
		t.Errorf("Resolve for other chat = %v, want ReplyNone", outcome)
	}
	if !store.Has(1) {
		t.Error("chat 1 entry must be untouched")
	}
}

func TestPendingStoreReset(t *testing.T) {
	store := NewPendingStore()
	store.Put(1, newTestSelection())
	store.Put(2, newTestSelection())

	store.Reset()
	if store.Has(1) || store.Has(2) {
		t.Error("reset should drop every entry")
	}
}
