package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// MaxVoiceBytes is the largest voice file the chat platform accepts.
const MaxVoiceBytes int64 = 20 * 1024 * 1024

// AudioArtifact is a synthesized file ready for delivery.
type AudioArtifact struct {
	Path            string
	Format          string
	SizeBytes       int64
	DurationSeconds float64
}

// ChatTransport delivers bot output to a chat. replyTo is the originating
// message id; zero sends a plain message.
type ChatTransport interface {
	SendVoice(ctx context.Context, chatID, replyTo int64, audio AudioArtifact) error
	SendText(ctx context.Context, chatID, replyTo int64, text string) error
}

type QuotaReason string

const (
	QuotaPermission QuotaReason = "permission"
	QuotaSize       QuotaReason = "size"
	QuotaDuration   QuotaReason = "duration"
)

// QuotaError means the platform refused the audio because of a size,
// duration or privacy restriction.
type QuotaError struct {
	Reason          QuotaReason
	SizeBytes       int64
	DurationSeconds float64
	Description     string
	Err             error
}

func (e *QuotaError) Error() string {
	switch e.Reason {
	case QuotaSize:
		return fmt.Sprintf("voice rejected: file is %s, limit %s", humanize.IBytes(uint64(e.SizeBytes)), humanize.IBytes(uint64(MaxVoiceBytes)))
	case QuotaDuration:
		return fmt.Sprintf("voice rejected: %.0fs exceeds the duration limit", e.DurationSeconds)
	}
	if e.Description != "" {
		return "voice rejected: " + e.Description
	}
	return "voice rejected by chat privacy settings"
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

// TimeoutError means the upload did not finish within the delivery timeout.
type TimeoutError struct {
	SizeBytes       int64
	DurationSeconds float64
	Elapsed         time.Duration
	Err             error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("voice upload timed out after %s (%s)", e.Elapsed.Round(time.Millisecond), humanize.IBytes(uint64(e.SizeBytes)))
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// CheckLimits rejects artifacts the platform would refuse. maxDuration <= 0
// disables the duration check.
func CheckLimits(audio AudioArtifact, maxDuration time.Duration) error {
	if audio.SizeBytes > MaxVoiceBytes {
		return &QuotaError{Reason: QuotaSize, SizeBytes: audio.SizeBytes, DurationSeconds: audio.DurationSeconds}
	}
	if maxDuration > 0 && audio.DurationSeconds > maxDuration.Seconds() {
		return &QuotaError{Reason: QuotaDuration, SizeBytes: audio.SizeBytes, DurationSeconds: audio.DurationSeconds}
	}
	return nil
}

// IsQuota reports whether err is a delivery quota violation.
func IsQuota(err error) bool {
	var quota *QuotaError
	return errors.As(err, &quota)
}
