package assistant

import (
	"regexp"
	"strings"
)

// CreateCommand adds a new task. DueString and ProjectRef are optional.
type CreateCommand struct {
	Content    string
	DueString  string
	ProjectRef string
}

// EditCommand changes an existing task. At least one of NewContent and
// DueString is set.
type EditCommand struct {
	Selector   string
	NewContent string
	DueString  string
	ProjectRef string
}

// CompleteCommand closes an existing task.
type CompleteCommand struct {
	Selector   string
	ProjectRef string
}

// RescheduleCommand moves an existing task's due date.
type RescheduleCommand struct {
	Selector   string
	DueString  string
	ProjectRef string
}

// Marker vocabularies. Create bodies know /due and /project; selector
// bodies additionally know /set for replacement content.
var (
	createMarkerRe = regexp.MustCompile(`(?i)\s/(due|project)\s+`)
	editMarkerRe   = regexp.MustCompile(`(?i)\s/(set|due|project)\s+`)
)

// extractMarkedFields splits a body into the payload before the first
// marker and a value per marker keyword. Empty values are dropped; a
// repeated keyword keeps its last non-empty value.
func extractMarkedFields(re *regexp.Regexp, body string) (string, map[string]string) {
	matches := re.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(body), nil
	}

	payload := strings.TrimSpace(body[:matches[0][0]])
	fields := make(map[string]string)
	for i, m := range matches {
		key := strings.ToLower(body[m[2]:m[3]])
		valueEnd := len(body)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}
		value := strings.TrimSpace(body[m[1]:valueEnd])
		if value == "" {
			continue
		}
		fields[key] = value
	}
	return payload, fields
}

// extractHashProject splits a "#projectname" convention off a creation
// payload: a trailing " #ref" wins when both halves are non-empty, a
// leading "#" turns the whole payload into a project reference.
func extractHashProject(content string) (string, string) {
	if content == "" {
		return content, ""
	}

	if idx := strings.LastIndex(content, " #"); idx >= 0 {
		taskContent := strings.TrimSpace(content[:idx])
		projectRef := strings.TrimSpace(content[idx+2:])
		if taskContent != "" && projectRef != "" {
			return taskContent, projectRef
		}
	}

	if strings.HasPrefix(content, "#") {
		if projectRef := strings.TrimSpace(content[1:]); projectRef != "" {
			return "", projectRef
		}
	}

	return content, ""
}

// stripVerbPrefix matches text against recognized verb prefixes and
// returns the trimmed body. ok is false when no prefix matched or the
// body is empty.
func stripVerbPrefix(text string, prefixes []string) (string, bool) {
	normalized := strings.TrimSpace(text)
	lowered := strings.ToLower(normalized)
	for _, prefix := range prefixes {
		if strings.HasPrefix(lowered, prefix) {
			body := strings.TrimSpace(normalized[len(prefix):])
			return body, body != ""
		}
	}
	return "", false
}

var (
	createPrefixes     = []string{"create ", "add ", "todo "}
	editPrefixes       = []string{"edit ", "update ", "change "}
	completePrefixes   = []string{"complete ", "done ", "finish ", "close "}
	reschedulePrefixes = []string{"reschedule ", "move "}
)

// ParseCreateCommand recognizes "create/add/todo <content> [/due ...]
// [/project ...]" with the #project convention on the content. Returns
// nil when the text is not a create command.
func ParseCreateCommand(text string) *CreateCommand {
	body, ok := stripVerbPrefix(text, createPrefixes)
	if !ok {
		return nil
	}

	content, fields := extractMarkedFields(createMarkerRe, body)
	projectRef := fields["project"]
	content, hashProject := extractHashProject(content)
	if projectRef == "" && hashProject != "" {
		projectRef = hashProject
	}

	if content == "" {
		return nil
	}
	return &CreateCommand{
		Content:    content,
		DueString:  fields["due"],
		ProjectRef: projectRef,
	}
}

// ParseEditCommand recognizes "edit/update/change <selector> [/set ...]
// [/due ...] [/project ...]". The selector and at least one change are
// required.
func ParseEditCommand(text string) *EditCommand {
	body, ok := stripVerbPrefix(text, editPrefixes)
	if !ok {
		return nil
	}

	selector, fields := extractMarkedFields(editMarkerRe, body)
	if selector == "" {
		return nil
	}
	if fields["set"] == "" && fields["due"] == "" {
		return nil
	}
	return &EditCommand{
		Selector:   selector,
		NewContent: fields["set"],
		DueString:  fields["due"],
		ProjectRef: fields["project"],
	}
}

// ParseCompleteCommand recognizes "complete/done/finish/close <selector>
// [/project ...]".
func ParseCompleteCommand(text string) *CompleteCommand {
	body, ok := stripVerbPrefix(text, completePrefixes)
	if !ok {
		return nil
	}

	selector, fields := extractMarkedFields(editMarkerRe, body)
	if selector == "" {
		return nil
	}
	return &CompleteCommand{
		Selector:   selector,
		ProjectRef: fields["project"],
	}
}

// ParseRescheduleCommand recognizes "reschedule/move <selector>
// /due <due string> [/project ...]". The due string is required.
func ParseRescheduleCommand(text string) *RescheduleCommand {
	body, ok := stripVerbPrefix(text, reschedulePrefixes)
	if !ok {
		return nil
	}

	selector, fields := extractMarkedFields(editMarkerRe, body)
	if selector == "" || fields["due"] == "" {
		return nil
	}
	return &RescheduleCommand{
		Selector:   selector,
		DueString:  fields["due"],
		ProjectRef: fields["project"],
	}
}
