package bot

import (
	"strings"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

// ExtractText returns the message text, or the caption of a media post.
func ExtractText(message domain.IncomingMessage) (string, error) {
	if strings.TrimSpace(message.Text) != "" {
		return message.Text, nil
	}
	if strings.TrimSpace(message.Caption) != "" {
		return message.Caption, nil
	}
	return "", &UnsupportedFormatError{}
}
