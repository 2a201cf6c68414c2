package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/transport"
)

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"asset", &synthesis.AssetError{Path: "model", Err: os.ErrNotExist}, msgAssetUnavailable},
		{"io", fmt.Errorf("synthesize: %w", &synthesis.IOError{Op: "write", Err: errors.New("disk full")}), msgIOFailure},
		{"quota permission", &transport.QuotaError{Reason: transport.QuotaPermission}, msgVoiceForbidden},
		{"quota size", &transport.QuotaError{Reason: transport.QuotaSize, SizeBytes: 21 * 1024 * 1024},
			"Файл слишком большой (21.0 МБ). Telegram ограничивает голосовые сообщения до 20 МБ. Попробуйте сократить текст."},
		{"timeout", &transport.TimeoutError{SizeBytes: 3 * 1024 * 1024, DurationSeconds: 61, Elapsed: 120 * time.Second},
			"Таймаут при отправке файла (3.0 МБ, 61 сек). Попробуйте сократить текст или увеличьте BOT_WRITE_TIMEOUT/DELIVERY_TIMEOUT."},
		{"timeout oversize", &transport.TimeoutError{SizeBytes: 25 * 1024 * 1024, Elapsed: time.Second},
			"Файл слишком большой (25.0 МБ). Telegram ограничивает голосовые сообщения до 20 МБ. Попробуйте сократить текст."},
		{"timeout under the size limit", &transport.TimeoutError{SizeBytes: 20_500_000, DurationSeconds: 400, Elapsed: time.Minute},
			"Таймаут при отправке файла (19.6 МБ, 400 сек). Попробуйте сократить текст или увеличьте BOT_WRITE_TIMEOUT/DELIVERY_TIMEOUT."},
		{"synthesis timeout", fmt.Errorf("synthesize job 1-1: %w", &synthesis.TimeoutError{Limit: 2 * time.Minute, Err: context.DeadlineExceeded}),
			"Синтез не уложился в 120 сек. Попробуйте сократить текст или увеличьте SYNTHESIS_TIMEOUT."},
		{"text too long", &synthesis.TextTooLongError{Length: 2100, Limit: 2000}, "текст превышает 2000 символов"},
		{"other", errors.New("boom"), msgGenericFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FailureMessage(tc.err, false))
		})
	}
}

func TestFailureMessageDebugAppendsChain(t *testing.T) {
	err := fmt.Errorf("deliver job 1-1: %w", errors.New("socket closed"))
	assert.Equal(t, msgGenericFailure+"\n\ndeliver job 1-1: socket closed", FailureMessage(err, true))
}
