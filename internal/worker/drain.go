package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/iago/telegram-voice-bot/internal/bot"
	"github.com/iago/telegram-voice-bot/internal/domain"
	"github.com/iago/telegram-voice-bot/internal/preprocess"
	"github.com/iago/telegram-voice-bot/internal/queue"
	"github.com/iago/telegram-voice-bot/internal/repository"
	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/transport"
)

// Preprocessor normalizes the spoken prefix with the same pipeline as bodies.
type Preprocessor interface {
	Preprocess(ctx context.Context, text string) preprocess.Result
}

type Config struct {
	TempDir          string
	SynthesisTimeout time.Duration
	DeliveryTimeout  time.Duration
	Debug            bool
}

// DrainWorker voices the queued jobs of a chat one at a time.
type DrainWorker struct {
	queue        queue.JobQueue
	locks        queue.Locker
	preprocessor Preprocessor
	synthesizer  synthesis.Synthesizer
	transport    transport.ChatTransport
	history      repository.JobsRepository
	metrics      *synthesis.MetricsLog
	logger       *log.Logger

	tempDir          string
	synthesisTimeout time.Duration
	deliveryTimeout  time.Duration
	debug            bool

	wg sync.WaitGroup
}

// NewDrainWorker wires the drain loop. preprocessor, history and metrics
// may be nil.
func NewDrainWorker(
	jobs queue.JobQueue,
	locks queue.Locker,
	preprocessor Preprocessor,
	synthesizer synthesis.Synthesizer,
	chat transport.ChatTransport,
	history repository.JobsRepository,
	metrics *synthesis.MetricsLog,
	logger *log.Logger,
	cfg Config,
) *DrainWorker {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 120 * time.Second
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 180 * time.Second
	}
	return &DrainWorker{
		queue:            jobs,
		locks:            locks,
		preprocessor:     preprocessor,
		synthesizer:      synthesizer,
		transport:        chat,
		history:          history,
		metrics:          metrics,
		logger:           logger,
		tempDir:          cfg.TempDir,
		synthesisTimeout: cfg.SynthesisTimeout,
		deliveryTimeout:  cfg.DeliveryTimeout,
		debug:            cfg.Debug,
	}
}

// Schedule drains chatID on a tracked goroutine.
func (w *DrainWorker) Schedule(ctx context.Context, chatID int64) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Drain(ctx, chatID)
	}()
}

// Wait blocks until every scheduled drain has returned.
func (w *DrainWorker) Wait() {
	w.wg.Wait()
}

// Drain processes the chat queue until it is empty. It returns at once when
// another drain holds the chat. Faults never escape; each one ends its job
// as Failed.
func (w *DrainWorker) Drain(ctx context.Context, chatID int64) {
	for {
		if !w.locks.TryAcquire(chatID) {
			return
		}
		w.drainLocked(ctx, chatID)

		// A job enqueued between the last empty peek and the release would
		// otherwise wait for the next message of the chat.
		if ctx.Err() != nil || w.queue.IsEmpty(chatID) {
			return
		}
	}
}

func (w *DrainWorker) drainLocked(ctx context.Context, chatID int64) {
	defer w.locks.Release(chatID)

	for {
		if ctx.Err() != nil {
			if w.logger != nil && !w.queue.IsEmpty(chatID) {
				w.logger.Warn("drain stopped with pending jobs", "chat_id", chatID)
			}
			return
		}
		job, ok := w.queue.Peek(chatID)
		if !ok {
			return
		}
		// The job in flight finishes even when shutdown starts.
		w.process(context.WithoutCancel(ctx), job)
		w.queue.Pop(chatID)
	}
}

func (w *DrainWorker) process(ctx context.Context, job *domain.Job) {
	w.queue.SetStatus(job, domain.JobStatusSynthesizing, "")
	record := domain.NewJobRecord(job)
	w.save(ctx, record)

	result, err := w.voice(ctx, job)
	if err != nil {
		w.queue.SetStatus(job, domain.JobStatusFailed, err.Error())
		if w.logger != nil {
			w.logger.Error("job failed", "job_id", job.ID, "chat_id", job.ChatID, "seq", job.Sequence, "err", err)
		}
		w.notify(ctx, job, FailureMessage(err, w.debug))
	} else {
		w.queue.SetStatus(job, domain.JobStatusSent, "")
		if w.logger != nil {
			w.logger.Info("job sent",
				"job_id", job.ID,
				"chat_id", job.ChatID,
				"seq", job.Sequence,
				"size", humanize.IBytes(uint64(result.SizeBytes)),
				"duration_s", result.DurationSeconds,
			)
		}
	}

	record = domain.NewJobRecord(job)
	record.Engine = w.synthesizer.Name()
	record.AudioFormat = result.Format
	record.DurationSeconds = result.DurationSeconds
	record.SizeBytes = result.SizeBytes
	record.SynthMS = result.SynthMS
	w.save(ctx, record)
}

// voice synthesizes and delivers one job. The scoped temp dir is removed on
// every path, panics included.
func (w *DrainWorker) voice(ctx context.Context, job *domain.Job) (result synthesis.Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if w.logger != nil {
				w.logger.Error("drain panic", "job_id", job.ID, "panic", recovered, "stack", string(debug.Stack()))
			}
			err = fmt.Errorf("drain panic: %v", recovered)
		}
	}()

	prefix := w.prefix(ctx, job.Payload)

	if err := os.MkdirAll(w.tempDir, 0o755); err != nil {
		return result, &synthesis.IOError{Op: "mkdir", Path: w.tempDir, Err: err}
	}
	dir, err := os.MkdirTemp(w.tempDir, "voice-*")
	if err != nil {
		return result, &synthesis.IOError{Op: "mkdir temp", Path: w.tempDir, Err: err}
	}
	defer func() {
		if removeErr := os.RemoveAll(dir); removeErr != nil && w.logger != nil {
			w.logger.Warn("temp audio cleanup failed", "path", dir, "err", removeErr)
		}
	}()

	synthCtx, cancelSynth := context.WithTimeout(ctx, w.synthesisTimeout)
	result, err = w.synthesizer.Synthesize(synthCtx, synthesis.Request{
		Text:       job.Payload.Text,
		Prefix:     prefix,
		OutputPath: filepath.Join(dir, job.ID),
	})
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(synthCtx.Err(), context.DeadlineExceeded)) {
		err = &synthesis.TimeoutError{Limit: w.synthesisTimeout, Err: err}
	}
	cancelSynth()
	if err != nil {
		w.recordMetricsFailure(err)
		return result, fmt.Errorf("synthesize job %s: %w", job.ID, err)
	}
	w.recordMetrics(result)

	deliverCtx, cancelDeliver := context.WithTimeout(ctx, w.deliveryTimeout)
	defer cancelDeliver()
	audio := transport.AudioArtifact{
		Path:            result.Path,
		Format:          result.Format,
		SizeBytes:       result.SizeBytes,
		DurationSeconds: result.DurationSeconds,
	}
	if err := w.transport.SendVoice(deliverCtx, job.ChatID, job.Payload.ReplyToMessageID, audio); err != nil {
		var timeout *transport.TimeoutError
		if !errors.As(err, &timeout) && errors.Is(deliverCtx.Err(), context.DeadlineExceeded) {
			err = &transport.TimeoutError{SizeBytes: result.SizeBytes, DurationSeconds: result.DurationSeconds, Elapsed: w.deliveryTimeout, Err: err}
		}
		return result, fmt.Errorf("deliver job %s: %w", job.ID, err)
	}
	return result, nil
}

// prefix returns the preprocessed attribution, or "" when the origin is
// unknown.
func (w *DrainWorker) prefix(ctx context.Context, payload domain.JobPayload) string {
	raw := bot.Prefix(payload.Source, payload.SenderName, payload.ChannelTitle)
	if raw == "" {
		if payload.Source != domain.SourceDirect && w.logger != nil {
			w.logger.Debug("forward origin has no visible name, voicing without prefix", "source", payload.Source)
		}
		return ""
	}
	if w.preprocessor == nil {
		return raw
	}
	return w.preprocessor.Preprocess(ctx, raw).FinalText
}

func (w *DrainWorker) notify(ctx context.Context, job *domain.Job, text string) {
	notifyCtx, cancel := context.WithTimeout(ctx, w.deliveryTimeout)
	defer cancel()
	if err := w.transport.SendText(notifyCtx, job.ChatID, job.Payload.ReplyToMessageID, text); err != nil && w.logger != nil {
		w.logger.Warn("failure notification not delivered", "job_id", job.ID, "err", err)
	}
}

func (w *DrainWorker) save(ctx context.Context, record *domain.JobRecord) {
	if w.history == nil {
		return
	}
	if err := w.history.SaveJob(ctx, record); err != nil && w.logger != nil {
		w.logger.Warn("job history write failed", "job_id", record.ID, "err", err)
	}
}

func (w *DrainWorker) recordMetrics(result synthesis.Result) {
	label := w.synthesizer.Name()
	if w.logger != nil {
		w.logger.Info("synthesis metrics", "line", synthesis.FormatMetrics(label, result))
	}
	if err := w.metrics.Success(label, result); err != nil && w.logger != nil {
		w.logger.Warn("metrics write failed", "err", err)
	}
}

func (w *DrainWorker) recordMetricsFailure(cause error) {
	if err := w.metrics.Failure(w.synthesizer.Name(), cause); err != nil && w.logger != nil {
		w.logger.Warn("metrics write failed", "err", err)
	}
}
