package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
)

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Intent
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"action": "complete_task", "selector": "Buy milk", "confidence": 0.9}`,
			want: Intent{Action: "complete_task", Selector: "Buy milk", Confidence: 0.9},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"action\": \"create_task\", \"content\": \"Call mum\", \"confidence\": 0.8}\n```",
			want: Intent{Action: "create_task", Content: "Call mum", Confidence: 0.8},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"action\": \"unknown\", \"confidence\": 0.1}\n```",
			want: Intent{Action: "unknown", Confidence: 0.1},
		},
		{
			name: "fields trimmed and action defaulted",
			raw:  `{"selector": "  Buy milk  ", "clarify_question": " Which one? ", "confidence": 0.4}`,
			want: Intent{Action: "unknown", Selector: "Buy milk", ClarifyQuestion: "Which one?", Confidence: 0.4},
		},
		{
			name: "confidence clamped high",
			raw:  `{"action": "complete_task", "confidence": 3.5}`,
			want: Intent{Action: "complete_task", Confidence: 1},
		},
		{
			name: "confidence clamped low",
			raw:  `{"action": "complete_task", "confidence": -2}`,
			want: Intent{Action: "complete_task", Confidence: 0},
		},
		{
			name:    "not json",
			raw:     "sorry, I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeIntent(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decodeIntent(%q) = %+v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeIntent(%q) error: %v", tt.raw, err)
			}
			if *got != tt.want {
				t.Errorf("decodeIntent(%q) = %+v, want %+v", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	snapshot := &Context{
		Projects: []string{"Work", "To-Do/Joint to-do"},
		OpenTasks: []TaskSummary{
			{ID: 101, Content: "Buy milk", ProjectID: 5},
		},
	}
	prompt := buildUserPrompt("mark the milk task done", snapshot)

	for _, want := range []string{
		"mark the milk task done",
		`"To-Do/Joint to-do"`,
		`"Buy milk"`,
		"JSON schema:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// A nil snapshot still renders a valid prompt.
	if prompt := buildUserPrompt("hello", nil); !strings.Contains(prompt, `"open_tasks":null`) {
		t.Errorf("nil-snapshot prompt = %q", prompt)
	}
}

func TestOpenAIParserParse(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Content: `{"action": "reschedule_task", "selector": "Submit report", "due_string": "friday", "confidence": 0.85}`,
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	parser := &OpenAIParser{
		client: openai.NewClientWithConfig(cfg),
		model:  "gpt-4o-mini",
		log:    logging.WithComponent("intent"),
	}

	got, err := parser.Parse(context.Background(), "move report to friday", &Context{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Action != ActionRescheduleTask || got.Selector != "Submit report" || got.DueString != "friday" {
		t.Errorf("Parse = %+v", got)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", got.Confidence)
	}

	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("response format = %+v", gotReq.ResponseFormat)
	}
}

func TestOpenAIParserParseBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "not json at all"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	parser := &OpenAIParser{
		client: openai.NewClientWithConfig(cfg),
		model:  "gpt-4o-mini",
		log:    logging.WithComponent("intent"),
	}

	if _, err := parser.Parse(context.Background(), "hmm", nil); err == nil {
		t.Fatal("want error for non-JSON model output")
	}
}
