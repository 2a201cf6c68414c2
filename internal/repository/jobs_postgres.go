package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iago/telegram-voice-bot/internal/domain"
)

const voiceJobsSchema = `
CREATE TABLE IF NOT EXISTS voice_jobs (
	id TEXT PRIMARY KEY,
	chat_id BIGINT NOT NULL,
	sequence BIGINT NOT NULL,
	status TEXT NOT NULL,
	source TEXT NOT NULL,
	text_chars INTEGER NOT NULL DEFAULT 0,
	llm_used BOOLEAN NOT NULL DEFAULT FALSE,
	fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
	engine TEXT NOT NULL DEFAULT '',
	audio_format TEXT NOT NULL DEFAULT '',
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	synth_ms BIGINT NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS voice_jobs_chat_sequence_idx ON voice_jobs (chat_id, sequence DESC);
`

const selectVoiceJob = `
	SELECT id, chat_id, sequence, status, source, text_chars, llm_used, fallback_used,
		engine, audio_format, duration_seconds, size_bytes, synth_ms, error_message,
		created_at, updated_at
	FROM voice_jobs`

type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(ctx context.Context, databaseURL string) (*PostgresJobsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresJobsRepository{pool: pool}, nil
}

// EnsureSchema creates the history table when it does not exist.
func (r *PostgresJobsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, voiceJobsSchema); err != nil {
		return fmt.Errorf("ensure voice_jobs schema: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresJobsRepository) SaveJob(ctx context.Context, record *domain.JobRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO voice_jobs (
			id, chat_id, sequence, status, source, text_chars, llm_used, fallback_used,
			engine, audio_format, duration_seconds, size_bytes, synth_ms, error_message,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			engine = EXCLUDED.engine,
			audio_format = EXCLUDED.audio_format,
			duration_seconds = EXCLUDED.duration_seconds,
			size_bytes = EXCLUDED.size_bytes,
			synth_ms = EXCLUDED.synth_ms,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`,
		record.ID,
		record.ChatID,
		record.Sequence,
		string(record.Status),
		string(record.Source),
		record.TextChars,
		record.LLMUsed,
		record.FallbackUsed,
		record.Engine,
		record.AudioFormat,
		record.DurationSeconds,
		record.SizeBytes,
		record.SynthMS,
		record.ErrorMessage,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert voice job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	record, err := scanRecord(r.pool.QueryRow(ctx, selectVoiceJob+" WHERE id = $1", jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query voice job: %w", err)
	}
	return record, nil
}

func (r *PostgresJobsRepository) ListChatJobs(ctx context.Context, chatID int64, limit int) ([]domain.JobRecord, error) {
	rows, err := r.pool.Query(ctx, selectVoiceJob+`
		WHERE chat_id = $1
		ORDER BY sequence DESC
		LIMIT $2`, chatID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list voice jobs: %w", err)
	}
	defer rows.Close()

	items := make([]domain.JobRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice job: %w", err)
		}
		items = append(items, *record)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate voice jobs: %w", rows.Err())
	}
	return items, nil
}

func scanRecord(row pgx.Row) (*domain.JobRecord, error) {
	var (
		record domain.JobRecord
		status string
		source string
	)
	err := row.Scan(
		&record.ID,
		&record.ChatID,
		&record.Sequence,
		&status,
		&source,
		&record.TextChars,
		&record.LLMUsed,
		&record.FallbackUsed,
		&record.Engine,
		&record.AudioFormat,
		&record.DurationSeconds,
		&record.SizeBytes,
		&record.SynthMS,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = domain.JobStatus(status)
	record.Source = domain.SourceKind(source)
	return &record, nil
}
