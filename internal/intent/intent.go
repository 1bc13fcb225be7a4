// Package intent extracts task-assistant intents from free-form text
// using an LLM. The assistant consumes it as a black box behind Parser.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
)

// Action values the extractor may return.
const (
	ActionCreateTask     = "create_task"
	ActionEditTask       = "edit_task"
	ActionCompleteTask   = "complete_task"
	ActionRescheduleTask = "reschedule_task"
	ActionUnknown        = "unknown"
)

// Intent is the structured result of LLM extraction. Optional string
// fields are empty when the model omitted them.
type Intent struct {
	Action          string  `json:"action"`
	Content         string  `json:"content"`
	Selector        string  `json:"selector"`
	NewContent      string  `json:"new_content"`
	DueString       string  `json:"due_string"`
	ProjectRef      string  `json:"project_ref"`
	Confidence      float64 `json:"confidence"`
	ClarifyQuestion string  `json:"clarify_question"`
}

// Context is a snapshot of assistant state handed to the model so it
// can pick real task and project names.
type Context struct {
	Projects  []string      `json:"projects"`
	Sections  []string      `json:"sections"`
	OpenTasks []TaskSummary `json:"open_tasks"`
}

// TaskSummary is a compact open-task description for the model context.
type TaskSummary struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	ProjectID int64  `json:"project_id"`
	SectionID int64  `json:"section_id,omitempty"`
	Due       string `json:"due,omitempty"`
}

// Parser extracts an intent from a message. Implementations may fail
// arbitrarily; callers treat any error as "no intent".
type Parser interface {
	Parse(ctx context.Context, text string, snapshot *Context) (*Intent, error)
}

const systemPrompt = "You map user text into Todoist assistant actions. " +
	"Return JSON only. Allowed actions: create_task, edit_task, complete_task, reschedule_task, unknown. " +
	"Use edit_task only when user wants to change an existing task. " +
	"Use complete_task when user wants to mark a task done. " +
	"Use reschedule_task when user wants to move a task due date. " +
	"Use create_task for adding a new task. " +
	"Do not invent fields. Keep confidence between 0 and 1. " +
	"If context contains projects/sections/tasks, use those names for selector/project_ref choices."

// OpenAIParser implements Parser on the OpenAI chat completions API.
type OpenAIParser struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// NewOpenAIParser creates a parser for the given API key and model.
func NewOpenAIParser(apiKey, model string, timeout time.Duration) *OpenAIParser {
	cfg := openai.DefaultConfig(apiKey)
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAIParser{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logging.WithComponent("intent"),
	}
}

// Parse asks the model to extract command fields from text.
func (p *OpenAIParser) Parse(ctx context.Context, text string, snapshot *Context) (*Intent, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text, snapshot)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("intent response had no choices")
	}

	intent, err := decodeIntent(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	p.log.Debug("Intent extracted",
		slog.String("action", intent.Action),
		slog.Float64("confidence", intent.Confidence))
	return intent, nil
}

func buildUserPrompt(text string, snapshot *Context) string {
	if snapshot == nil {
		snapshot = &Context{}
	}
	contextJSON, err := json.Marshal(snapshot)
	if err != nil {
		contextJSON = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("Extract command fields from this message:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nAvailable assistant context (projects/sections/tasks):\n")
	sb.Write(contextJSON)
	sb.WriteString("\n\nExamples:\n")
	sb.WriteString(`- "mark the milk task done" -> {"action":"complete_task","selector":"Buy milk"}` + "\n")
	sb.WriteString(`- "move report to friday" -> {"action":"reschedule_task","selector":"Submit report","due_string":"friday"}` + "\n")
	sb.WriteString(`- "add reminder to call mum tomorrow in To-Do/Joint to-do" -> {"action":"create_task","content":"Call mum","due_string":"tomorrow","project_ref":"To-Do/Joint to-do"}` + "\n\n")
	sb.WriteString("JSON schema:\n")
	sb.WriteString(`{"action":"create_task|edit_task|complete_task|reschedule_task|unknown",` +
		`"content":"string|null","selector":"string|null","new_content":"string|null",` +
		`"due_string":"string|null","project_ref":"string|null","confidence":0.0,` +
		`"clarify_question":"string|null"}`)
	return sb.String()
}

// decodeIntent parses the model output, trims every string field and
// clamps the confidence into [0,1].
func decodeIntent(raw string) (*Intent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var intent Intent
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &intent); err != nil {
		return nil, fmt.Errorf("intent response was not valid JSON: %w", err)
	}

	intent.Action = strings.TrimSpace(intent.Action)
	if intent.Action == "" {
		intent.Action = ActionUnknown
	}
	intent.Content = strings.TrimSpace(intent.Content)
	intent.Selector = strings.TrimSpace(intent.Selector)
	intent.NewContent = strings.TrimSpace(intent.NewContent)
	intent.DueString = strings.TrimSpace(intent.DueString)
	intent.ProjectRef = strings.TrimSpace(intent.ProjectRef)
	intent.ClarifyQuestion = strings.TrimSpace(intent.ClarifyQuestion)

	if intent.Confidence < 0 {
		intent.Confidence = 0
	}
	if intent.Confidence > 1 {
		intent.Confidence = 1
	}
	return &intent, nil
}
