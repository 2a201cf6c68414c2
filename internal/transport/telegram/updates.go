package telegram

import (
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

// fullName joins first and last name the way the client shows them.
func fullName(user models.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// ToIncoming maps a Telegram message to the transport independent shape.
func ToIncoming(m *models.Message) domain.IncomingMessage {
	incoming := domain.IncomingMessage{
		ChatID:     m.Chat.ID,
		MessageID:  int64(m.ID),
		Text:       m.Text,
		Caption:    m.Caption,
		Command:    command(m),
		Source:     domain.SourceDirect,
		ReceivedAt: time.Unix(int64(m.Date), 0).UTC(),
	}
	if m.From != nil {
		incoming.UserID = m.From.ID
	}
	if m.Date == 0 {
		incoming.ReceivedAt = time.Now().UTC()
	}

	origin := m.ForwardOrigin
	if origin == nil {
		return incoming
	}
	switch origin.Type {
	case "user":
		incoming.Source = domain.SourceForwardedUser
		if origin.MessageOriginUser != nil {
			incoming.SenderName = fullName(origin.MessageOriginUser.SenderUser)
		}
	case "hidden_user":
		incoming.Source = domain.SourceForwardedUser
	case "channel":
		incoming.Source = domain.SourceForwardedChannel
		if origin.MessageOriginChannel != nil {
			incoming.ChannelTitle = origin.MessageOriginChannel.Chat.Title
		}
	case "chat":
		incoming.Source = domain.SourceForwardedChannel
		if origin.MessageOriginChat != nil {
			incoming.ChannelTitle = origin.MessageOriginChat.SenderChat.Title
		}
	}
	return incoming
}

// command returns the leading bot command without the @botname suffix.
func command(m *models.Message) string {
	for _, entity := range m.Entities {
		if entity.Type != "bot_command" || entity.Offset != 0 {
			continue
		}
		fields := strings.Fields(m.Text)
		if len(fields) == 0 {
			return ""
		}
		name := fields[0]
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
		return strings.ToLower(name)
	}
	return ""
}
