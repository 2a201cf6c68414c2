package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iago/telegram-voice-bot/internal/domain"
	"github.com/iago/telegram-voice-bot/internal/repository"
)

func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	record, err := api.history.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type pendingJob struct {
	JobID     string            `json:"job_id"`
	Sequence  int64             `json:"sequence"`
	Status    domain.JobStatus  `json:"status"`
	Source    domain.SourceKind `json:"source"`
	TextChars int               `json:"text_chars"`
}

// ChatJobs lists the pending queue of a chat and its recent history.
func (api *API) ChatJobs(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "chat_id must be an integer")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	pending := make([]pendingJob, 0)
	if api.queue != nil {
		for _, job := range api.queue.Snapshot(chatID) {
			pending = append(pending, pendingJob{
				JobID:     job.ID,
				Sequence:  job.Sequence,
				Status:    job.Status,
				Source:    job.Payload.Source,
				TextChars: len([]rune(job.Payload.Text)),
			})
		}
	}

	history, err := api.history.ListChatJobs(r.Context(), chatID, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chat_id": chatID,
		"pending": pending,
		"history": history,
	})
}
