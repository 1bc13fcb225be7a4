package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ciaranwuk/todo-list-assistant/internal/assistant"
	"github.com/Ciaranwuk/todo-list-assistant/internal/config"
	"github.com/Ciaranwuk/todo-list-assistant/internal/logging"
	"github.com/Ciaranwuk/todo-list-assistant/internal/todoist"
)

const longPollTimeout = 20 // seconds

// Handler polls Telegram for messages and routes them to the assistant
type Handler struct {
	client       *Client
	core         *assistant.Handler
	allowedIDs   map[int64]bool
	pollInterval time.Duration
	offset       int64
	log          *slog.Logger
}

// NewHandler creates a new Telegram message handler
func NewHandler(cfg *config.TelegramConfig, core *assistant.Handler) *Handler {
	allowedIDs := make(map[int64]bool, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		allowedIDs[id] = true
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Handler{
		client:       NewClient(cfg.BotToken),
		core:         core,
		allowedIDs:   allowedIDs,
		pollInterval: pollInterval,
		log:          logging.WithComponent("telegram"),
	}
}

// Run polls for updates until the context is canceled.
func (h *Handler) Run(ctx context.Context) error {
	h.log.Info("Assistant started with Telegram polling")

	for {
		if err := ctx.Err(); err != nil {
			h.log.Debug("Poll loop stopped")
			return nil
		}

		updates, err := h.client.GetUpdates(ctx, h.offset, longPollTimeout)
		if err != nil {
			// Don't spam logs on context cancellation
			if ctx.Err() == nil {
				h.log.Warn("Error fetching updates", slog.Any("error", err))
			}
			// Brief pause before retry on error
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(h.pollInterval):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= h.offset {
				h.offset = update.UpdateID + 1
			}
			h.processUpdate(ctx, update)
		}
	}
}

// processUpdate handles a single update
func (h *Handler) processUpdate(ctx context.Context, update *Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	senderID := int64(0)
	if msg.From != nil {
		senderID = msg.From.ID
	}
	if !h.allowedIDs[senderID] {
		h.log.Warn("Ignoring unauthorized user",
			slog.Int64("user_id", senderID), slog.Int64("chat_id", msg.Chat.ID))
		return
	}

	log := logging.WithCorrelationID(uuid.NewString()).With(slog.Int64("chat_id", msg.Chat.ID))

	reply, err := h.core.HandleText(ctx, text, msg.Chat.ID)
	if err != nil {
		var apiErr *todoist.APIError
		if errors.As(err, &apiErr) {
			log.Error("Todoist request failed", slog.Any("error", err))
			reply = "Todoist rejected that request. Details: " + apiErr.Message
		} else {
			log.Error("Message handling failed", slog.Any("error", err))
			reply = "Something went wrong while handling that message. Please try again."
		}
	}

	if err := h.client.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Warn("Failed to send reply", slog.Any("error", err))
	}
}
