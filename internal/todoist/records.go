package todoist

import (
	"context"
	"regexp"
	"strings"
)

// PathRecord is a project or section pre-rendered for reference matching.
// For sections ProjectID is the owning project; for projects it is zero.
type PathRecord struct {
	ID         ID
	ProjectID  ID
	Name       string
	Path       string // display form, e.g. "To-Do/Joint to-do"
	PathNorm   string
	PathSquash string
	NameNorm   string
	NameSquash string
}

var (
	slashSpaceRe = regexp.MustCompile(`\s*/\s*`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]`)
)

// normalizeRef lower-cases a reference, converts backslashes to slashes
// and collapses whitespace around slashes and runs of whitespace.
func normalizeRef(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	lowered = strings.ReplaceAll(lowered, "\\", "/")
	lowered = slashSpaceRe.ReplaceAllString(lowered, "/")
	return spaceRunRe.ReplaceAllString(lowered, " ")
}

// squashRef reduces a reference to its alphanumeric characters only.
func squashRef(value string) string {
	return nonAlnumRe.ReplaceAllString(normalizeRef(value), "")
}

func newPathRecord(id, projectID ID, name, path string) PathRecord {
	return PathRecord{
		ID:         id,
		ProjectID:  projectID,
		Name:       name,
		Path:       path,
		PathNorm:   normalizeRef(path),
		PathSquash: squashRef(path),
		NameNorm:   normalizeRef(name),
		NameSquash: squashRef(name),
	}
}

// projectRecords fetches and caches path records for all projects.
// Parent chains are flattened into slash-separated paths.
func (c *Client) projectRecords(ctx context.Context) ([]PathRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.projects != nil {
		return c.projects, nil
	}

	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[ID]Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	var buildPath func(id ID) string
	buildPath = func(id ID) string {
		project := byID[id]
		name := strings.TrimSpace(project.Name)
		if project.ParentID != 0 {
			if _, ok := byID[project.ParentID]; ok {
				return buildPath(project.ParentID) + "/" + name
			}
		}
		return name
	}

	records := make([]PathRecord, 0, len(projects))
	for _, p := range projects {
		records = append(records, newPathRecord(p.ID, 0, strings.TrimSpace(p.Name), buildPath(p.ID)))
	}

	c.projects = records
	return records, nil
}

// sectionRecords fetches and caches path records for all sections,
// prefixed with their owning project's path.
func (c *Client) sectionRecords(ctx context.Context) ([]PathRecord, error) {
	projects, err := c.projectRecords(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sections != nil {
		return c.sections, nil
	}

	projectByID := make(map[ID]PathRecord, len(projects))
	for _, r := range projects {
		projectByID[r.ID] = r
	}

	sections, err := c.ListSections(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]PathRecord, 0, len(sections))
	for _, s := range sections {
		name := strings.TrimSpace(s.Name)
		path := name
		if project, ok := projectByID[s.ProjectID]; ok && project.Path != "" {
			path = project.Path + "/" + name
		}
		records = append(records, newPathRecord(s.ID, s.ProjectID, name, path))
	}

	c.sections = records
	return records, nil
}
