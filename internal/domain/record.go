package domain

import "time"

// JobRecord is the audit view of a job, kept after the job leaves its queue.
type JobRecord struct {
	ID              string     `json:"job_id"`
	ChatID          int64      `json:"chat_id"`
	Sequence        int64      `json:"sequence"`
	Status          JobStatus  `json:"status"`
	Source          SourceKind `json:"source"`
	TextChars       int        `json:"text_chars"`
	LLMUsed         bool       `json:"llm_used"`
	FallbackUsed    bool       `json:"fallback_used"`
	Engine          string     `json:"engine,omitempty"`
	AudioFormat     string     `json:"audio_format,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	SizeBytes       int64      `json:"size_bytes,omitempty"`
	SynthMS         int64      `json:"synth_ms,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewJobRecord snapshots the queue-side fields of job.
func NewJobRecord(job *Job) *JobRecord {
	return &JobRecord{
		ID:           job.ID,
		ChatID:       job.ChatID,
		Sequence:     job.Sequence,
		Status:       job.Status,
		Source:       job.Payload.Source,
		TextChars:    len([]rune(job.Payload.Text)),
		LLMUsed:      job.Payload.LLMUsed,
		FallbackUsed: job.Payload.FallbackUsed,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}
