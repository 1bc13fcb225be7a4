// Package todoist is a client for the Todoist REST v2 API with
// project/section path resolution on top.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://api.todoist.com/rest/v2"

// APIError is returned when the Todoist API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist API error (%d): %s", e.StatusCode, e.Message)
}

// ID is a Todoist entity id. The REST API encodes ids as JSON strings;
// the assistant works with them numerically.
type ID int64

// UnmarshalJSON accepts both string and number encodings.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid todoist id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// Due holds the human-readable due form of a task.
type Due struct {
	String string `json:"string"`
}

// Task is an open Todoist task.
type Task struct {
	ID        ID     `json:"id"`
	Content   string `json:"content"`
	Due       *Due   `json:"due,omitempty"`
	ProjectID ID     `json:"project_id"`
	SectionID ID     `json:"section_id,omitempty"`
}

// DueText returns the due string or "no due" when the task has none.
func (t *Task) DueText() string {
	if t.Due != nil && t.Due.String != "" {
		return t.Due.String
	}
	return "no due"
}

// Project is a raw Todoist project.
type Project struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	ParentID ID     `json:"parent_id,omitempty"`
}

// Section is a raw Todoist section.
type Section struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	ProjectID ID     `json:"project_id"`
}

// Client talks to the Todoist REST v2 API. Project and section path
// records are derived once per process, matching how rarely they change.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client

	mu       sync.Mutex
	projects []PathRecord
	sections []PathRecord
}

// NewClient creates a Todoist client.
func NewClient(apiToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  defaultBaseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// request performs an API call and maps non-2xx responses to APIError.
func (c *Client) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("todoist request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(respBody))
		if message == "" {
			message = fmt.Sprintf("Todoist API error (%d)", resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return respBody, nil
}

type createTaskRequest struct {
	Content   string `json:"content"`
	DueString string `json:"due_string,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	SectionID string `json:"section_id,omitempty"`
}

// CreateTask creates a task. dueString, projectID and sectionID are
// optional; zero values mean unset.
func (c *Client) CreateTask(ctx context.Context, content, dueString string, projectID, sectionID ID) (*Task, error) {
	req := createTaskRequest{
		Content:   content,
		DueString: dueString,
	}
	if projectID != 0 {
		req.ProjectID = strconv.FormatInt(int64(projectID), 10)
	}
	if sectionID != 0 {
		req.SectionID = strconv.FormatInt(int64(sectionID), 10)
	}

	body, err := c.request(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	return &task, nil
}

// ListOpenTasks returns up to limit open tasks.
func (c *Client) ListOpenTasks(ctx context.Context, limit int) ([]Task, error) {
	body, err := c.request(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks: %w", err)
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

type updateTaskRequest struct {
	Content   string `json:"content,omitempty"`
	DueString string `json:"due_string,omitempty"`
}

// UpdateTask updates a task's content and/or due string. Empty strings
// mean "leave unchanged"; at least one field must be set.
func (c *Client) UpdateTask(ctx context.Context, taskID ID, content, dueString string) error {
	if content == "" && dueString == "" {
		return fmt.Errorf("update requires at least one field to change")
	}
	_, err := c.request(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d", taskID), updateTaskRequest{
		Content:   content,
		DueString: dueString,
	})
	return err
}

// CloseTask marks a task as completed.
func (c *Client) CloseTask(ctx context.Context, taskID ID) error {
	_, err := c.request(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/close", taskID), nil)
	return err
}

// ListProjects returns all projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	body, err := c.request(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := json.Unmarshal(body, &projects); err != nil {
		return nil, fmt.Errorf("failed to parse projects: %w", err)
	}
	return projects, nil
}

// ListSections returns all sections.
func (c *Client) ListSections(ctx context.Context) ([]Section, error) {
	body, err := c.request(ctx, http.MethodGet, "/sections", nil)
	if err != nil {
		return nil, err
	}

	var sections []Section
	if err := json.Unmarshal(body, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse sections: %w", err)
	}
	return sections, nil
}
