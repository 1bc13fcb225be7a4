package todoist

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// resolveCutoff is the minimum similarity for the closest-match
	// fallback step; suggestCutoff is deliberately looser so failure
	// replies can still point at plausible paths.
	resolveCutoff = 0.72
	suggestCutoff = 0.45
)

// similarityRatio is a Ratcliff/Obershelp longest-matching-blocks ratio
// in [0,1], computed per character.
func similarityRatio(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// closeMatches returns up to n choices scoring at least cutoff against
// target, best first. Ties keep the original choice order.
func closeMatches(target string, choices []string, n int, cutoff float64) []string {
	type scored struct {
		score  float64
		choice string
	}
	var kept []scored
	for _, choice := range choices {
		if ratio := similarityRatio(target, choice); ratio >= cutoff {
			kept = append(kept, scored{score: ratio, choice: choice})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > n {
		kept = kept[:n]
	}
	matches := make([]string, 0, len(kept))
	for _, s := range kept {
		matches = append(matches, s.choice)
	}
	return matches
}

// resolveRecord runs the reference-matching cascade over records.
// Every step must produce exactly one winner or the cascade falls
// through; squash containment applies to projects only.
func resolveRecord(records []PathRecord, ref string, squashContainment bool) *PathRecord {
	stripped := strings.TrimPrefix(strings.TrimSpace(ref), "#")
	normalized := normalizeRef(stripped)
	squashed := squashRef(stripped)
	if normalized == "" {
		return nil
	}

	unique := func(keep func(r *PathRecord) bool) *PathRecord {
		var match *PathRecord
		for i := range records {
			if keep(&records[i]) {
				if match != nil {
					return nil
				}
				match = &records[i]
			}
		}
		return match
	}

	if r := unique(func(r *PathRecord) bool { return r.PathNorm == normalized }); r != nil {
		return r
	}
	if r := unique(func(r *PathRecord) bool { return r.NameNorm == normalized }); r != nil {
		return r
	}
	if r := unique(func(r *PathRecord) bool {
		return r.PathSquash == squashed || r.NameSquash == squashed
	}); r != nil {
		return r
	}
	if squashContainment && squashed != "" {
		if r := unique(func(r *PathRecord) bool {
			return strings.Contains(r.PathSquash, squashed) || strings.HasPrefix(r.NameSquash, squashed)
		}); r != nil {
			return r
		}
	}

	choices := make([]string, len(records))
	for i, r := range records {
		choices[i] = r.PathNorm
	}
	if close := closeMatches(normalized, choices, 3, resolveCutoff); len(close) == 1 {
		for i := range records {
			if records[i].PathNorm == close[0] {
				return &records[i]
			}
		}
	}

	return nil
}

// suggestPaths returns up to limit normalized paths loosely matching ref.
func suggestPaths(records []PathRecord, ref string, limit int) []string {
	normalized := normalizeRef(strings.TrimPrefix(strings.TrimSpace(ref), "#"))
	if normalized == "" {
		return nil
	}
	choices := make([]string, len(records))
	for i, r := range records {
		choices[i] = r.PathNorm
	}
	return closeMatches(normalized, choices, limit, suggestCutoff)
}

// ResolveProject resolves a project reference to a record, or nil when
// no unique match exists.
func (c *Client) ResolveProject(ctx context.Context, ref string) (*PathRecord, error) {
	records, err := c.projectRecords(ctx)
	if err != nil {
		return nil, err
	}
	return resolveRecord(records, ref, true), nil
}

// ResolveSection resolves a section reference to a record, or nil when
// no unique match exists. Sections skip the squash-containment step.
func (c *Client) ResolveSection(ctx context.Context, ref string) (*PathRecord, error) {
	records, err := c.sectionRecords(ctx)
	if err != nil {
		return nil, err
	}
	return resolveRecord(records, ref, false), nil
}

// SuggestProjects returns near-miss project paths for a failed reference.
func (c *Client) SuggestProjects(ctx context.Context, ref string, limit int) ([]string, error) {
	records, err := c.projectRecords(ctx)
	if err != nil {
		return nil, err
	}
	return suggestPaths(records, ref, limit), nil
}

// SuggestSections returns near-miss section paths for a failed reference.
func (c *Client) SuggestSections(ctx context.Context, ref string, limit int) ([]string, error) {
	records, err := c.sectionRecords(ctx)
	if err != nil {
		return nil, err
	}
	return suggestPaths(records, ref, limit), nil
}

// ListProjectPaths returns up to limit project display paths, sorted
// case-insensitively.
func (c *Client) ListProjectPaths(ctx context.Context, limit int) ([]string, error) {
	records, err := c.projectRecords(ctx)
	if err != nil {
		return nil, err
	}
	return sortedPaths(records, limit), nil
}

// ListSectionPaths returns up to limit section display paths, sorted
// case-insensitively.
func (c *Client) ListSectionPaths(ctx context.Context, limit int) ([]string, error) {
	records, err := c.sectionRecords(ctx)
	if err != nil {
		return nil, err
	}
	return sortedPaths(records, limit), nil
}

func sortedPaths(records []PathRecord, limit int) []string {
	seen := make(map[string]bool, len(records))
	paths := make([]string, 0, len(records))
	for _, r := range records {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}
