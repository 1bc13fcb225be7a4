package todoist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int64, name, path string) PathRecord {
	return newPathRecord(ID(id), 0, name, path)
}

func householdRecords() []PathRecord {
	return []PathRecord{
		rec(1, "To-Do", "To-Do"),
		rec(2, "Joint to-do", "To-Do/Joint to-do"),
		rec(3, "Work", "Work"),
		rec(4, "Personal", "Personal"),
	}
}

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Work", "work"},
		{"  Work  ", "work"},
		{`Work \ Admin`, "work/admin"},
		{"To-Do / Joint to-do", "to-do/joint to-do"},
		{"a   b", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeRef(tt.in), "normalizeRef(%q)", tt.in)
	}
}

func TestSquashRef(t *testing.T) {
	assert.Equal(t, "todojointtodo", squashRef("To-Do/Joint to-do"))
	assert.Equal(t, "work", squashRef("  Work! "))
	assert.Equal(t, "", squashRef("  / - "))
}

func TestResolveRecordExactPath(t *testing.T) {
	records := householdRecords()

	r := resolveRecord(records, "to-do", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(1), r.ID)

	r = resolveRecord(records, "To-Do/Joint to-do", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(2), r.ID)
}

func TestResolveRecordHashPrefixAndName(t *testing.T) {
	records := householdRecords()

	r := resolveRecord(records, "#Work", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(3), r.ID)

	// Name matches even when the display path carries a parent prefix.
	r = resolveRecord(records, "joint to-do", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(2), r.ID)
}

func TestResolveRecordSquashContainment(t *testing.T) {
	records := householdRecords()

	// "joint" survives only the containment step, which applies to
	// project lookups.
	r := resolveRecord(records, "joint", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(2), r.ID)

	assert.Nil(t, resolveRecord(records, "joint", false))
}

func TestResolveRecordCloseMatchFallback(t *testing.T) {
	records := householdRecords()

	// One typo against "personal": 0.933 similarity, above the cutoff.
	r := resolveRecord(records, "personl", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(4), r.ID)

	// "wrok" scores 0.5 against "work", below the resolve cutoff.
	assert.Nil(t, resolveRecord(records, "wrok", true))
}

func TestResolveRecordAmbiguity(t *testing.T) {
	records := []PathRecord{
		rec(1, "Chores", "Home/Chores"),
		rec(2, "Chores", "Office/Chores"),
	}

	// Two records share the name, so every step has two winners.
	assert.Nil(t, resolveRecord(records, "chores", true))

	// The full path is still unique.
	r := resolveRecord(records, "home/chores", true)
	require.NotNil(t, r)
	assert.Equal(t, ID(1), r.ID)
}

func TestResolveRecordAmbiguousCloseMatches(t *testing.T) {
	records := []PathRecord{
		rec(1, "taskz1", "taskz1"),
		rec(2, "taskz2", "taskz2"),
	}
	// Both score 0.909 against "taskz"; the fallback requires a single
	// survivor.
	assert.Nil(t, resolveRecord(records, "taskz", true))
}

func TestResolveRecordEmptyRef(t *testing.T) {
	records := householdRecords()
	assert.Nil(t, resolveRecord(records, "", true))
	assert.Nil(t, resolveRecord(records, "   ", true))
	assert.Nil(t, resolveRecord(records, "#", true))
}

func TestSuggestPaths(t *testing.T) {
	records := householdRecords()

	got := suggestPaths(records, "wrok", 3)
	assert.Equal(t, []string{"work"}, got)

	assert.Empty(t, suggestPaths(records, "zzzzzz", 3))
	assert.Empty(t, suggestPaths(records, "", 3))
}

func TestCloseMatchesOrderAndCap(t *testing.T) {
	choices := []string{"personal", "person", "persona", "unrelated"}
	got := closeMatches("personal", choices, 2, 0.45)
	// Best score first, capped at two.
	require.Len(t, got, 2)
	assert.Equal(t, "personal", got[0])
	assert.Equal(t, "persona", got[1])
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("work", "work"))
	assert.Equal(t, 1.0, similarityRatio("", ""))
	assert.InDelta(t, 0.5, similarityRatio("wrok", "work"), 0.001)
	assert.Equal(t, 0.0, similarityRatio("abc", "xyz"))
}

func TestSortedPaths(t *testing.T) {
	records := []PathRecord{
		rec(1, "b", "Work"),
		rec(2, "a", "apple"),
		rec(3, "dup", "Work"),
		rec(4, "z", "Zoo"),
	}
	assert.Equal(t, []string{"apple", "Work", "Zoo"}, sortedPaths(records, 0))
	assert.Equal(t, []string{"apple", "Work"}, sortedPaths(records, 2))
}
