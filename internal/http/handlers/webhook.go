package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/iago/telegram-voice-bot/internal/transport/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook accepts updates pushed by Telegram. Intake rejections are
// answered in the chat, so the response is 200 for every valid update.
func (api *API) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if api.webhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(api.webhookSecret)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}
	update, err := telegram.ParseUpdate(body)
	if err != nil {
		if api.logger != nil {
			api.logger.Warn("webhook update rejected", "err", err)
		}
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "update does not match schema")
		return
	}

	if update.Message != nil && api.intake != nil {
		if err := api.intake.HandleMessage(api.ctx, telegram.ToIncoming(update.Message)); err != nil && api.logger != nil {
			level := api.logger.Info
			if !IsRejection(err) {
				level = api.logger.Warn
			}
			level("webhook message not accepted", "update_id", update.ID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type userFacing interface {
	UserMessage() string
}

// IsRejection reports whether err was already answered in the chat.
func IsRejection(err error) bool {
	var rejection userFacing
	return errors.As(err, &rejection)
}
