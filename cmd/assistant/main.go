package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ciaranwuk/todo-list-assistant/internal/adapters/telegram"
	"github.com/Ciaranwuk/todo-list-assistant/internal/assistant"
	"github.com/Ciaranwuk/todo-list-assistant/internal/config"
	"github.com/Ciaranwuk/todo-list-assistant/internal/intent"
	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "assistant",
		Short: "Telegram assistant for Todoist",
		Long:  `A Telegram bot that turns chat messages into Todoist task operations: create, edit, complete, and reschedule.`,
	}

	rootCmd.AddCommand(
		newStartCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the assistant polling loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("failed to init logging: %w", err)
			}

			backend := todoist.NewClient(cfg.Todoist.APIToken, cfg.Todoist.Timeout)

			var parser intent.Parser
			if cfg.IntentParserEnabled() {
				parser = intent.NewOpenAIParser(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
				logging.Info("LLM intent parser enabled", "model", cfg.OpenAI.Model)
			} else {
				logging.Info("LLM intent parser disabled (missing openai api_key or model)")
			}

			core := assistant.NewHandler(backend, parser)
			handler := telegram.NewHandler(cfg.Telegram, core)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return handler.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "Path to config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the assistant version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
