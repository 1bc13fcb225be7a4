package assistant

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

// MatchStatus is the outcome of matching a selector against the open tasks.
type MatchStatus int

const (
	// MatchNone means no task matched confidently enough to act on.
	MatchNone MatchStatus = iota
	// MatchFound means exactly one task matched.
	MatchFound
	// MatchAmbiguous means several tasks matched about equally well.
	MatchAmbiguous
)

const (
	maxCandidates = 5

	// scoreFloor is the minimum similarity to be considered at all,
	// confidentFloor the minimum for the best guess to be trusted, and
	// ambiguityGap the lead the top score needs over the runner-up to
	// act without asking.
	scoreFloor     = 0.62
	confidentFloor = 0.72
	ambiguityGap   = 0.08
)

// normalizeTaskText lower-cases, trims and collapses whitespace runs.
func normalizeTaskText(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// taskSimilarity is a Ratcliff/Obershelp longest-matching-blocks ratio
// in [0,1], computed per character.
func taskSimilarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// findTaskMatches resolves a selector against tasks. Candidates keep
// the original task order and are capped at maxCandidates.
//
// A purely numeric selector is treated as a task id; duplicate id
// matches would be anomalous and collapse to MatchNone. Otherwise the
// cascade is exact normalized equality, substring containment, then
// similarity scoring against the thresholds above.
func findTaskMatches(tasks []todoist.Task, selector string) (MatchStatus, *todoist.Task, []todoist.Task) {
	raw := strings.TrimSpace(selector)
	if raw == "" {
		return MatchNone, nil, nil
	}

	if isAllDigits(raw) {
		taskID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return MatchNone, nil, nil
		}
		var idMatches []todoist.Task
		for _, t := range tasks {
			if t.ID == todoist.ID(taskID) {
				idMatches = append(idMatches, t)
			}
		}
		if len(idMatches) == 1 {
			return MatchFound, &idMatches[0], nil
		}
		return MatchNone, nil, nil
	}

	normalized := normalizeTaskText(raw)

	var exact []todoist.Task
	for _, t := range tasks {
		if normalizeTaskText(t.Content) == normalized {
			exact = append(exact, t)
		}
	}
	if len(exact) == 1 {
		return MatchFound, &exact[0], nil
	}
	if len(exact) > 1 {
		return MatchAmbiguous, nil, capCandidates(exact)
	}

	var contains []todoist.Task
	for _, t := range tasks {
		if strings.Contains(normalizeTaskText(t.Content), normalized) {
			contains = append(contains, t)
		}
	}
	if len(contains) == 1 {
		return MatchFound, &contains[0], nil
	}
	if len(contains) > 1 {
		return MatchAmbiguous, nil, capCandidates(contains)
	}

	type scoredTask struct {
		score float64
		task  todoist.Task
	}
	var scored []scoredTask
	for _, t := range tasks {
		if ratio := taskSimilarity(normalized, normalizeTaskText(t.Content)); ratio >= scoreFloor {
			scored = append(scored, scoredTask{score: ratio, task: t})
		}
	}
	if len(scored) == 0 {
		return MatchNone, nil, nil
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	top := scored[0]
	if top.score < confidentFloor {
		return MatchNone, nil, nil
	}
	if len(scored) == 1 || top.score-scored[1].score >= ambiguityGap {
		return MatchFound, &top.task, nil
	}

	var close []todoist.Task
	for _, s := range scored {
		if top.score-s.score <= ambiguityGap {
			close = append(close, s.task)
		}
	}
	return MatchAmbiguous, nil, capCandidates(close)
}

func capCandidates(tasks []todoist.Task) []todoist.Task {
	if len(tasks) > maxCandidates {
		return tasks[:maxCandidates]
	}
	return tasks
}
