package bot

import (
	"strings"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

// Prefix is the spoken attribution for a forwarded message. It returns ""
// for direct messages and for forwards whose origin has no visible name.
func Prefix(source domain.SourceKind, senderName, channelTitle string) string {
	switch source {
	case domain.SourceForwardedUser:
		if name := strings.TrimSpace(senderName); name != "" {
			return "сообщение от пользователя " + name
		}
	case domain.SourceForwardedChannel:
		if title := strings.TrimSpace(channelTitle); title != "" {
			return "пост из канала " + title
		}
	}
	return ""
}

const HelpText = "Я озвучиваю текстовые сообщения и пересланные посты.\n" +
	"- лимит 2000 символов\n" +
	"- переслано от пользователя: скажу «сообщение от пользователя <имя>»\n" +
	"- переслано из канала: скажу «пост из канала <название>»"
