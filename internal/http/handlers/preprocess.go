package handlers

import (
	"net/http"
	"strings"

	"github.com/iago/telegram-voice-bot/internal/preprocess"
)

type preprocessRequest struct {
	Text   string   `json:"text" validate:"required,max=20000"`
	Stages []string `json:"stages,omitempty" validate:"omitempty,dive,oneof=basic abbreviations symbols numbers latin_letters paragraph_pauses llm"`
}

// Preprocess runs the pipeline on ad-hoc text. Without explicit stages it
// behaves exactly like intake, fallback included.
func (api *API) Preprocess(w http.ResponseWriter, r *http.Request) {
	var request preprocessRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}
	if err := api.validate.Struct(request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	if len(request.Stages) == 0 {
		writeJSON(w, http.StatusOK, api.preprocessor.Preprocess(r.Context(), request.Text))
		return
	}

	stages := make([]preprocess.Stage, 0, len(request.Stages))
	for _, name := range request.Stages {
		stages = append(stages, preprocess.Stage(strings.ToLower(name)))
	}
	result, err := api.preprocessor.RunStages(r.Context(), request.Text, stages)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "preprocess_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
