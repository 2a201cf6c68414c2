package telegram

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

// MessageHandler receives every inbound message. It must not block for long;
// the next update is not dispatched until it returns.
type MessageHandler func(ctx context.Context, message domain.IncomingMessage)

// Poll long-polls getUpdates until ctx ends. Messages reach handler one at a
// time in update order; failed polls back off inside the library, honoring
// retry_after.
func (c *Client) Poll(ctx context.Context, handler MessageHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("telegram long polling started")
	}
	c.bot.Start(ctx)
	if c.logger != nil {
		c.logger.Info("telegram long polling stopped")
	}
}

func (c *Client) dispatch(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(ctx, ToIncoming(update.Message))
}

func (c *Client) pollError(err error) {
	if c.logger != nil {
		c.logger.Warn("telegram poll failed", "err", redact(err, c.token))
	}
}
