package worker

import (
	"errors"
	"fmt"

	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/transport"
)

const (
	msgAssetUnavailable = "синтез недоступен: отсутствует модель или путь"
	msgIOFailure        = "синтез недоступен: ошибка записи/чтения"
	msgGenericFailure   = "не удалось озвучить сообщение"
	msgVoiceForbidden   = "Не удалось отправить голос. Разрешите боту голосовые: Settings → Privacy and Security → Voice messages (включить для всех или добавить бота в исключения)."
)

func megabytes(size int64) float64 {
	return float64(size) / (1024 * 1024)
}

func tooLargeMessage(size int64) string {
	return fmt.Sprintf("Файл слишком большой (%.1f МБ). Telegram ограничивает голосовые сообщения до 20 МБ. Попробуйте сократить текст.", megabytes(size))
}

// FailureMessage maps a drain fault to the text sent to the chat. Debug
// mode appends the full error chain.
func FailureMessage(err error, debug bool) string {
	message := failureCategory(err)
	if debug && err != nil {
		message += "\n\n" + err.Error()
	}
	return message
}

func failureCategory(err error) string {
	var (
		quota    *transport.QuotaError
		timeout  *transport.TimeoutError
		assetErr *synthesis.AssetError
		ioErr    *synthesis.IOError
		tooLong  *synthesis.TextTooLongError
		synthTO  *synthesis.TimeoutError
	)
	switch {
	case errors.As(err, &quota):
		switch quota.Reason {
		case transport.QuotaSize:
			return tooLargeMessage(quota.SizeBytes)
		case transport.QuotaDuration:
			return fmt.Sprintf("Аудио слишком длинное (%.0f сек). Попробуйте сократить текст.", quota.DurationSeconds)
		default:
			return msgVoiceForbidden
		}
	case errors.As(err, &timeout):
		if timeout.SizeBytes > transport.MaxVoiceBytes {
			return tooLargeMessage(timeout.SizeBytes)
		}
		return fmt.Sprintf(
			"Таймаут при отправке файла (%.1f МБ, %.0f сек). Попробуйте сократить текст или увеличьте BOT_WRITE_TIMEOUT/DELIVERY_TIMEOUT.",
			megabytes(timeout.SizeBytes), timeout.DurationSeconds,
		)
	case errors.As(err, &synthTO):
		return fmt.Sprintf(
			"Синтез не уложился в %.0f сек. Попробуйте сократить текст или увеличьте SYNTHESIS_TIMEOUT.",
			synthTO.Limit.Seconds(),
		)
	case errors.As(err, &assetErr):
		return msgAssetUnavailable
	case errors.As(err, &ioErr):
		return msgIOFailure
	case errors.As(err, &tooLong):
		return fmt.Sprintf("текст превышает %d символов", tooLong.Limit)
	default:
		return msgGenericFailure
	}
}
