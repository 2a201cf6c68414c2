package bot

import (
	"fmt"
)

type InputErrorKind string

const (
	InputEmpty   InputErrorKind = "empty"
	InputTooLong InputErrorKind = "too_long"
)

// InputError rejects a message before any job exists.
type InputError struct {
	Kind  InputErrorKind
	Limit int
}

func (e *InputError) Error() string {
	if e.Kind == InputTooLong {
		return fmt.Sprintf("text exceeds %d characters", e.Limit)
	}
	return "nothing to voice"
}

// UserMessage is the text sent back to the chat.
func (e *InputError) UserMessage() string {
	if e.Kind == InputTooLong {
		return fmt.Sprintf("текст превышает %d символов", e.Limit)
	}
	return "озвучивать нечего"
}

// UnsupportedFormatError means the message carries no text to voice.
type UnsupportedFormatError struct{}

func (e *UnsupportedFormatError) Error() string {
	return "message has no text"
}

func (e *UnsupportedFormatError) UserMessage() string {
	return "Пожалуйста, отправьте текст или репост поддерживаемого сообщения."
}

// UserFacing is implemented by errors that carry their own chat reply.
type UserFacing interface {
	error
	UserMessage() string
}
