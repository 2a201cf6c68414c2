package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusSynthesizing JobStatus = "synthesizing"
	JobStatusSent         JobStatus = "sent"
	JobStatusFailed       JobStatus = "failed"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSent || s == JobStatusFailed
}

type SourceKind string

const (
	SourceDirect           SourceKind = "direct"
	SourceForwardedUser    SourceKind = "forwarded_user"
	SourceForwardedChannel SourceKind = "forwarded_channel"
)

// IncomingMessage is the transport independent shape of an inbound chat message.
type IncomingMessage struct {
	ChatID       int64
	MessageID    int64
	UserID       int64
	Text         string
	Caption      string
	Command      string
	Source       SourceKind
	SenderName   string
	ChannelTitle string
	ReceivedAt   time.Time
}

// JobPayload carries the normalized body and the metadata needed to voice it.
type JobPayload struct {
	Text             string     `json:"text"`
	Source           SourceKind `json:"source"`
	SenderName       string     `json:"sender_name,omitempty"`
	ChannelTitle     string     `json:"channel_title,omitempty"`
	ReplyToMessageID int64      `json:"reply_to_message_id"`
	LLMUsed          bool       `json:"llm_used"`
	FallbackUsed     bool       `json:"fallback_used"`
}

// Job is one synthesis-and-delivery unit owned by a chat queue.
type Job struct {
	ID           string
	ChatID       int64
	Sequence     int64
	Payload      JobPayload
	Status       JobStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobID derives the job identifier from the originating chat message.
func JobID(chatID, messageID int64) string {
	return fmt.Sprintf("%d-%d", chatID, messageID)
}
