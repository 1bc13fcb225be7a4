// Package config loads the assistant configuration from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
)

// Config represents the main configuration
type Config struct {
	Version  string          `yaml:"version"`
	Telegram *TelegramConfig `yaml:"telegram"`
	Todoist  *TodoistConfig  `yaml:"todoist"`
	OpenAI   *OpenAIConfig   `yaml:"openai"`
	Logging  *logging.Config `yaml:"logging"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token"`
	AllowedUserIDs []int64       `yaml:"allowed_user_ids"`
	PollInterval   time.Duration `yaml:"poll_interval"` // pause after a failed poll
}

// TodoistConfig holds Todoist API settings
type TodoistConfig struct {
	APIToken string        `yaml:"api_token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OpenAIConfig holds settings for the optional LLM intent parser.
// The parser is enabled only when both APIKey and Model are set.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// IntentParserEnabled reports whether the LLM intent parser should be wired in.
func (c *Config) IntentParserEnabled() bool {
	return c.OpenAI != nil && c.OpenAI.APIKey != "" && c.OpenAI.Model != ""
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Telegram: &TelegramConfig{
			PollInterval: 2 * time.Second,
		},
		Todoist: &TodoistConfig{
			Timeout: 15 * time.Second,
		},
		OpenAI: &OpenAIConfig{
			Timeout: 20 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables so secrets can stay out of the file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfigPath returns the default configuration path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".todo-assistant", "config.yaml")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram == nil || c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot_token is required")
	}
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return fmt.Errorf("telegram allowed_user_ids must contain at least one user id")
	}
	for _, id := range c.Telegram.AllowedUserIDs {
		if id == 0 {
			return fmt.Errorf("telegram allowed_user_ids contains an invalid entry")
		}
	}
	if c.Todoist == nil || c.Todoist.APIToken == "" {
		return fmt.Errorf("todoist api_token is required")
	}
	if c.OpenAI != nil && (c.OpenAI.APIKey == "") != (c.OpenAI.Model == "") {
		return fmt.Errorf("openai api_key and model must be set together")
	}
	return nil
}
