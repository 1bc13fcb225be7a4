// Package assistant turns free-form chat messages into Todoist
// operations: deterministic command parsing, fuzzy task and project
// resolution, a numbered-choice disambiguation dialogue per chat, and
// an optional LLM fallback for messages the parser does not recognize.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ciaranwuk/todo-list-assistant/internal/intent"
	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

// confidenceGate is the minimum LLM confidence to act on an intent
// instead of asking the user to clarify.
const confidenceGate = 0.55

const helpText = "I can create, edit, complete, and reschedule Todoist tasks. " +
	"Use: 'add <task>', 'edit <selector> /set <new content>', " +
	"'complete <selector>', or 'reschedule <selector> /due <todoist due string>'."

// Backend is the task-tracking collaborator. Errors from it propagate
// to the Handler's caller, which renders them for the user.
type Backend interface {
	ListOpenTasks(ctx context.Context, limit int) ([]todoist.Task, error)
	CreateTask(ctx context.Context, content, dueString string, projectID, sectionID todoist.ID) (*todoist.Task, error)
	UpdateTask(ctx context.Context, taskID todoist.ID, content, dueString string) error
	CloseTask(ctx context.Context, taskID todoist.ID) error
	ResolveProject(ctx context.Context, ref string) (*todoist.PathRecord, error)
	ResolveSection(ctx context.Context, ref string) (*todoist.PathRecord, error)
	SuggestProjects(ctx context.Context, ref string, limit int) ([]string, error)
	SuggestSections(ctx context.Context, ref string, limit int) ([]string, error)
	ListProjectPaths(ctx context.Context, limit int) ([]string, error)
	ListSectionPaths(ctx context.Context, limit int) ([]string, error)
}

// Handler is the message entry point. It is safe for concurrent use;
// only the pending-selection store carries state across messages.
type Handler struct {
	backend Backend
	parser  intent.Parser // nil disables the LLM fallback
	pending *PendingStore
	log     *slog.Logger
}

// NewHandler creates a handler. parser may be nil.
func NewHandler(backend Backend, parser intent.Parser) *Handler {
	return &Handler{
		backend: backend,
		parser:  parser,
		pending: NewPendingStore(),
		log:     logging.WithComponent("assistant"),
	}
}

// ResetPending drops all pending selections. Exposed for test isolation.
func (h *Handler) ResetPending() {
	h.pending.Reset()
}

// actionKind tags the selector-resolving actions so the resolve-then-
// execute path is written once.
type actionKind string

const (
	actionEdit       actionKind = "edit"
	actionComplete   actionKind = "complete"
	actionReschedule actionKind = "reschedule"
)

// selectorAction is a command that must first resolve a task selector.
type selectorAction struct {
	kind       actionKind
	selector   string
	projectRef string
	changes    Changes
}

// HandleText routes one chat message and returns the reply. chatID is
// the transport's conversation identifier; zero means unknown, which
// disables the disambiguation dialogue for this message.
func (h *Handler) HandleText(ctx context.Context, text string, chatID int64) (string, error) {
	if chatID != 0 {
		if reply, handled, err := h.handlePendingReply(ctx, text, chatID); handled {
			return reply, err
		}
	}

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "projects", "list projects":
		return h.listProjects(ctx)
	case "sections", "list sections":
		return h.listSections(ctx)
	case "tasks", "list tasks":
		return h.listTasks(ctx)
	}

	editCmd := ParseEditCommand(text)
	createCmd := ParseCreateCommand(text)
	completeCmd := ParseCompleteCommand(text)
	rescheduleCmd := ParseRescheduleCommand(text)

	if editCmd == nil && createCmd == nil && completeCmd == nil && rescheduleCmd == nil && h.parser != nil {
		parsed := h.parseIntent(ctx, text)
		if parsed != nil {
			if parsed.Confidence < confidenceGate {
				if parsed.ClarifyQuestion != "" {
					return parsed.ClarifyQuestion, nil
				}
				return "Could you rephrase that with the task and change you want?", nil
			}
			editCmd, createCmd, completeCmd, rescheduleCmd = commandsFromIntent(parsed)
		}
	}

	// Fixed execution priority: Edit > Complete > Reschedule > Create.
	if editCmd != nil {
		return h.runSelectorAction(ctx, chatID, selectorAction{
			kind:       actionEdit,
			selector:   editCmd.Selector,
			projectRef: editCmd.ProjectRef,
			changes:    Changes{Content: editCmd.NewContent, DueString: editCmd.DueString},
		})
	}
	if completeCmd != nil {
		return h.runSelectorAction(ctx, chatID, selectorAction{
			kind:       actionComplete,
			selector:   completeCmd.Selector,
			projectRef: completeCmd.ProjectRef,
		})
	}
	if rescheduleCmd != nil {
		return h.runSelectorAction(ctx, chatID, selectorAction{
			kind:       actionReschedule,
			selector:   rescheduleCmd.Selector,
			projectRef: rescheduleCmd.ProjectRef,
			changes:    Changes{DueString: rescheduleCmd.DueString},
		})
	}
	if createCmd != nil {
		return h.runCreate(ctx, createCmd)
	}

	return helpText, nil
}

// handlePendingReply consumes a reply to an outstanding disambiguation.
// handled is false when the chat has no pending selection.
func (h *Handler) handlePendingReply(ctx context.Context, text string, chatID int64) (string, bool, error) {
	selection, index, outcome := h.pending.Resolve(chatID, text)
	switch outcome {
	case ReplyNone:
		return "", false, nil
	case ReplyCanceled:
		return "Okay, canceled that request.", true, nil
	case ReplyNotNumber:
		return "Reply with the task number shown in the list, or type 'cancel'.", true, nil
	case ReplyOutOfRange:
		return "That number is out of range. Reply with a listed number, or 'cancel'.", true, nil
	}

	task := selection.Options[index]
	reply, err := h.executeAction(ctx, selection.Kind, &task, selection.Changes)
	return reply, true, err
}

// runSelectorAction resolves the selector against the open tasks and
// either executes the action, registers a disambiguation, or explains
// why nothing matched.
func (h *Handler) runSelectorAction(ctx context.Context, chatID int64, action selectorAction) (string, error) {
	openTasks, err := h.backend.ListOpenTasks(ctx, 200)
	if err != nil {
		return "", err
	}

	if action.projectRef != "" {
		projectID, sectionID, _, failure, err := h.resolveProjectOrSection(ctx, action.projectRef)
		if err != nil {
			return "", err
		}
		if failure != "" {
			return failure, nil
		}
		var filtered []todoist.Task
		for _, t := range openTasks {
			if projectID != 0 && t.ProjectID != projectID {
				continue
			}
			if sectionID != 0 && t.SectionID != sectionID {
				continue
			}
			filtered = append(filtered, t)
		}
		openTasks = filtered
	}

	status, matched, candidates := findTaskMatches(openTasks, action.selector)
	if status == MatchNone {
		return fmt.Sprintf("Could not find an open task matching %q. Try `tasks` to view candidates.", action.selector), nil
	}

	if status == MatchAmbiguous {
		lines := []string{fmt.Sprintf("I found multiple open tasks matching %q. Reply with a number:", action.selector)}
		for i, t := range candidates {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, formatTaskLabel(&t)))
		}
		lines = append(lines, "Type 'cancel' to stop.")
		if chatID != 0 {
			h.pending.Put(chatID, PendingSelection{
				Kind:    action.kind,
				Changes: action.changes,
				Options: candidates,
			})
		}
		return strings.Join(lines, "\n"), nil
	}

	return h.executeAction(ctx, action.kind, matched, action.changes)
}

// executeAction applies a resolved action to a single task and renders
// the confirmation text.
func (h *Handler) executeAction(ctx context.Context, kind actionKind, task *todoist.Task, changes Changes) (string, error) {
	switch kind {
	case actionEdit:
		oldContent := task.Content
		oldDue := dueOrNone(task)
		if err := h.backend.UpdateTask(ctx, task.ID, changes.Content, changes.DueString); err != nil {
			return "", err
		}
		finalContent := oldContent
		if changes.Content != "" {
			finalContent = changes.Content
		}
		finalDue := oldDue
		if changes.DueString != "" {
			finalDue = changes.DueString
		}
		return fmt.Sprintf("Updated task [%d]: %q -> %q (due: %s -> %s).",
			task.ID, oldContent, finalContent, oldDue, finalDue), nil

	case actionComplete:
		if err := h.backend.CloseTask(ctx, task.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Completed task [%d]: %q.", task.ID, task.Content), nil

	case actionReschedule:
		if changes.DueString == "" {
			return "Missing due date for reschedule. Please try again.", nil
		}
		oldDue := dueOrNone(task)
		if err := h.backend.UpdateTask(ctx, task.ID, "", changes.DueString); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rescheduled task [%d]: %q (due: %s -> %s).",
			task.ID, task.Content, oldDue, changes.DueString), nil
	}

	return "Unsupported action. Please try again.", nil
}

// runCreate resolves the optional project reference and creates the task.
func (h *Handler) runCreate(ctx context.Context, cmd *CreateCommand) (string, error) {
	var projectID, sectionID todoist.ID
	var projectPath string
	if cmd.ProjectRef != "" {
		var failure string
		var err error
		projectID, sectionID, projectPath, failure, err = h.resolveProjectOrSection(ctx, cmd.ProjectRef)
		if err != nil {
			return "", err
		}
		if failure != "" {
			return failure, nil
		}
	}

	task, err := h.backend.CreateTask(ctx, cmd.Content, cmd.DueString, projectID, sectionID)
	if err != nil {
		return "", err
	}

	duePart := "none"
	if task.Due != nil && task.Due.String != "" {
		duePart = task.Due.String
	}
	projectPart := "Inbox/default"
	if projectPath != "" {
		projectPart = projectPath
	}
	content := task.Content
	if content == "" {
		content = cmd.Content
	}
	return fmt.Sprintf("Created task: %q (due: %s, project: %s).", content, duePart, projectPart), nil
}

// resolveProjectOrSection tries projects first, then sections. A
// section match also carries its owning project id. failure is a
// user-facing message when neither collection yields a unique match.
func (h *Handler) resolveProjectOrSection(ctx context.Context, ref string) (projectID, sectionID todoist.ID, path, failure string, err error) {
	project, err := h.backend.ResolveProject(ctx, ref)
	if err != nil {
		return 0, 0, "", "", err
	}
	if project != nil {
		return project.ID, 0, project.Path, "", nil
	}

	section, err := h.backend.ResolveSection(ctx, ref)
	if err != nil {
		return 0, 0, "", "", err
	}
	if section != nil {
		return section.ProjectID, section.ID, section.Path, "", nil
	}

	projectSuggestions, err := h.backend.SuggestProjects(ctx, ref, 3)
	if err != nil {
		return 0, 0, "", "", err
	}
	sectionSuggestions, err := h.backend.SuggestSections(ctx, ref, 3)
	if err != nil {
		return 0, 0, "", "", err
	}

	suggestions := dedupe(append(projectSuggestions, sectionSuggestions...))
	if len(suggestions) > 0 {
		return 0, 0, "", fmt.Sprintf("Could not find project/section %q. Closest matches: %s.",
			ref, strings.Join(suggestions, ", ")), nil
	}
	return 0, 0, "", fmt.Sprintf("Could not find project/section %q. Use the exact Todoist project or section path.", ref), nil
}

// parseIntent calls the LLM intent source. Any failure, including one
// while building the context snapshot, degrades to "no intent".
func (h *Handler) parseIntent(ctx context.Context, text string) *intent.Intent {
	snapshot, err := h.buildIntentContext(ctx)
	if err != nil {
		h.log.Error("Intent context build failed", slog.Any("error", err))
		return nil
	}

	parsed, err := h.parser.Parse(ctx, text, snapshot)
	if err != nil {
		h.log.Error("Intent parse failed", slog.Any("error", err))
		return nil
	}
	return parsed
}

// buildIntentContext snapshots projects, sections and open tasks for
// the intent source.
func (h *Handler) buildIntentContext(ctx context.Context) (*intent.Context, error) {
	projects, err := h.backend.ListProjectPaths(ctx, 20)
	if err != nil {
		return nil, err
	}
	sections, err := h.backend.ListSectionPaths(ctx, 30)
	if err != nil {
		return nil, err
	}
	tasks, err := h.backend.ListOpenTasks(ctx, 25)
	if err != nil {
		return nil, err
	}

	summaries := make([]intent.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		due := ""
		if t.Due != nil {
			due = t.Due.String
		}
		summaries = append(summaries, intent.TaskSummary{
			ID:        int64(t.ID),
			Content:   t.Content,
			ProjectID: int64(t.ProjectID),
			SectionID: int64(t.SectionID),
			Due:       due,
		})
	}
	return &intent.Context{
		Projects:  projects,
		Sections:  sections,
		OpenTasks: summaries,
	}, nil
}

// commandsFromIntent converts a confident intent into a typed command.
// Actions with missing required fields produce nothing, so the caller
// falls through to the help text.
func commandsFromIntent(parsed *intent.Intent) (*EditCommand, *CreateCommand, *CompleteCommand, *RescheduleCommand) {
	switch strings.ToLower(parsed.Action) {
	case intent.ActionEditTask:
		if parsed.Selector != "" && (parsed.NewContent != "" || parsed.DueString != "") {
			return &EditCommand{
				Selector:   parsed.Selector,
				NewContent: parsed.NewContent,
				DueString:  parsed.DueString,
				ProjectRef: parsed.ProjectRef,
			}, nil, nil, nil
		}
	case intent.ActionCreateTask:
		if parsed.Content != "" {
			return nil, &CreateCommand{
				Content:    parsed.Content,
				DueString:  parsed.DueString,
				ProjectRef: parsed.ProjectRef,
			}, nil, nil
		}
	case intent.ActionCompleteTask:
		if parsed.Selector != "" {
			return nil, nil, &CompleteCommand{
				Selector:   parsed.Selector,
				ProjectRef: parsed.ProjectRef,
			}, nil
		}
	case intent.ActionRescheduleTask:
		if parsed.Selector != "" && parsed.DueString != "" {
			return nil, nil, nil, &RescheduleCommand{
				Selector:   parsed.Selector,
				DueString:  parsed.DueString,
				ProjectRef: parsed.ProjectRef,
			}
		}
	}
	return nil, nil, nil, nil
}

func (h *Handler) listProjects(ctx context.Context) (string, error) {
	paths, err := h.backend.ListProjectPaths(ctx, 30)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "No projects found in Todoist.", nil
	}
	return "Projects:\n" + bulleted(paths), nil
}

func (h *Handler) listSections(ctx context.Context) (string, error) {
	paths, err := h.backend.ListSectionPaths(ctx, 50)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "No sections found in Todoist.", nil
	}
	return "Sections:\n" + bulleted(paths), nil
}

func (h *Handler) listTasks(ctx context.Context) (string, error) {
	tasks, err := h.backend.ListOpenTasks(ctx, 15)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "No open tasks found.", nil
	}
	labels := make([]string, 0, len(tasks))
	for i := range tasks {
		labels = append(labels, formatTaskLabel(&tasks[i]))
	}
	return "Open tasks:\n" + bulleted(labels), nil
}

func formatTaskLabel(t *todoist.Task) string {
	return fmt.Sprintf("[%d] %s (due: %s)", t.ID, t.Content, t.DueText())
}

// dueOrNone renders a task's due string for edit/reschedule replies.
func dueOrNone(t *todoist.Task) string {
	if t.Due != nil && t.Due.String != "" {
		return t.Due.String
	}
	return "none"
}

func bulleted(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
