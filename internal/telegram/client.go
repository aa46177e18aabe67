// Package telegram renders alert text and pushes it to the notification
// channel. Dispatch is best-effort: delivery failures are logged and
// swallowed, never propagated into the scan loop.
package telegram

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/catalystwatch/internal/logger"
)

// Sender delivers one formatted message. Tests inject recorders; production
// uses Client or, without credentials, LogSender.
type Sender interface {
	Send(text string) error
}

// Client sends messages through the Telegram Bot API.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send delivers an HTML-formatted message with linear-backoff retry.
func (c *Client) Send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// LogSender is the mock delivery channel used when notification credentials
// are missing. The marker prefix keeps mock sends distinguishable from real
// delivery attempts.
type LogSender struct{}

// Send writes the message to the local log sink.
func (LogSender) Send(text string) error {
	logger.Info("[dispatch mock] %s", text)
	return nil
}

// Dispatcher pushes formatted alerts through a Sender and never raises.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher wraps a sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch sends the text, logging and swallowing delivery failures.
func (d *Dispatcher) Dispatch(text string) {
	if err := d.sender.Send(text); err != nil {
		logger.Warn("alert delivery failed: %v", err)
	}
}
