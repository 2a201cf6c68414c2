package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/iago/telegram-voice-bot/internal/domain"
	"github.com/iago/telegram-voice-bot/internal/http/middleware"
	"github.com/iago/telegram-voice-bot/internal/preprocess"
	"github.com/iago/telegram-voice-bot/internal/repository"
)

var errInvalidPayload = errors.New("invalid payload")

const maxBodyBytes = 1 << 20

// Intake accepts inbound chat messages.
type Intake interface {
	HandleMessage(ctx context.Context, message domain.IncomingMessage) error
}

// QueueView exposes the pending jobs of a chat.
type QueueView interface {
	Snapshot(chatID int64) []domain.Job
}

type Preprocessor interface {
	RunStages(ctx context.Context, text string, stages []preprocess.Stage) (preprocess.Result, error)
	Preprocess(ctx context.Context, text string) preprocess.Result
}

type Dependencies struct {
	// Context is the service lifetime context handed to asynchronous intake.
	Context       context.Context
	Intake        Intake
	Queue         QueueView
	History       repository.JobsRepository
	Preprocessor  Preprocessor
	WebhookSecret string
	Logger        *log.Logger
}

type API struct {
	ctx           context.Context
	intake        Intake
	queue         QueueView
	history       repository.JobsRepository
	preprocessor  Preprocessor
	webhookSecret string
	logger        *log.Logger
	validate      *validator.Validate
}

func NewAPI(deps Dependencies) *API {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	return &API{
		ctx:           deps.Context,
		intake:        deps.Intake,
		queue:         deps.Queue,
		history:       deps.History,
		preprocessor:  deps.Preprocessor,
		webhookSecret: deps.WebhookSecret,
		logger:        deps.Logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}
