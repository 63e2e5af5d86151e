package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mixelka/commentbot/pkg/models"
)

// Dialer creates authenticated Telegram clients. Constructing a client issues
// a getMe identity probe, so a successful Dial doubles as token validation.
type Dialer struct {
	endpoint    string
	pollTimeout int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewDialer creates a dialer against the given API host (https://api.telegram.org
// in production, an httptest server in tests)
func NewDialer(apiHost string, pollTimeout int, logger *slog.Logger) *Dialer {
	return &Dialer{
		endpoint:    strings.TrimRight(apiHost, "/") + "/bot%s/%s",
		pollTimeout: pollTimeout,
		httpClient: &http.Client{
			// Must exceed the getUpdates short-poll wait
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "telegram"),
	}
}

// ValidateToken probes the token with getMe and returns the bot username
func (d *Dialer) ValidateToken(token string) (string, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, d.endpoint, d.httpClient)
	if err != nil {
		return "", fmt.Errorf("invalid telegram bot token: %w", err)
	}
	return api.Self.UserName, nil
}

// Dial validates the token and returns a client bound to it
func (d *Dialer) Dial(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, d.endpoint, d.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	d.logger.Info("authorized telegram bot", "username", api.Self.UserName)
	return &Client{
		api:         api,
		pollTimeout: d.pollTimeout,
		logger:      d.logger,
	}, nil
}

// Client sends and receives messages for one bot token
type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

// FetchUpdates returns updates with ids strictly greater than afterCursor,
// in increasing id order
func (c *Client) FetchUpdates(ctx context.Context, afterCursor int) ([]models.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.NewUpdate(afterCursor + 1)
	cfg.Timeout = c.pollTimeout
	cfg.Limit = 100

	raw, err := c.api.GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch updates: %w", err)
	}

	updates := make([]models.Update, 0, len(raw))
	for _, u := range raw {
		updates = append(updates, mapUpdate(u))
	}
	return updates, nil
}

// SendText sends a plain text message to a chat
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func mapUpdate(u tgbotapi.Update) models.Update {
	update := models.Update{ID: u.UpdateID}
	if u.Message == nil || u.Message.Chat == nil {
		return update
	}

	msg := &models.InboundMessage{
		ChatID: u.Message.Chat.ID,
		Text:   u.Message.Text,
	}
	if u.Message.ReplyToMessage != nil {
		msg.Reply = &models.Reply{Text: u.Message.ReplyToMessage.Text}
	}
	update.Message = msg
	return update
}
