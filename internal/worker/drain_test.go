package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/telegram-voice-bot/internal/domain"
	"github.com/iago/telegram-voice-bot/internal/preprocess"
	"github.com/iago/telegram-voice-bot/internal/queue"
	"github.com/iago/telegram-voice-bot/internal/repository"
	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/transport"
)

type fakeSynth struct {
	mu       sync.Mutex
	requests []synthesis.Request
	active   map[int64]int
	maxSeen  int32
	delay    time.Duration
	fail     func(request synthesis.Request) error
}

func (f *fakeSynth) Name() string { return "fake_tts" }

func (f *fakeSynth) Synthesize(_ context.Context, request synthesis.Request) (synthesis.Result, error) {
	chatID := chatOf(request.OutputPath)
	f.mu.Lock()
	if f.active == nil {
		f.active = map[int64]int{}
	}
	f.active[chatID]++
	if int32(f.active[chatID]) > atomic.LoadInt32(&f.maxSeen) {
		atomic.StoreInt32(&f.maxSeen, int32(f.active[chatID]))
	}
	f.requests = append(f.requests, request)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[chatID]--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil {
		if err := f.fail(request); err != nil {
			return synthesis.Result{}, err
		}
	}
	path := request.OutputPath + ".ogg"
	if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
		return synthesis.Result{}, err
	}
	return synthesis.Result{Path: path, Format: "ogg", SizeBytes: 4, DurationSeconds: 1}, nil
}

// chatOf reads the chat id back from the "<chat>-<message>" file name.
func chatOf(outputPath string) int64 {
	var chatID, messageID int64
	_, _ = fmt.Sscanf(filepath.Base(outputPath), "%d-%d", &chatID, &messageID)
	return chatID
}

type sentText struct {
	chatID  int64
	replyTo int64
	text    string
}

type fakeTransport struct {
	mu       sync.Mutex
	voices   map[int64][]int64
	texts    []sentText
	voiceErr func(replyTo int64) error
	seen     []string
}

func (f *fakeTransport) SendVoice(_ context.Context, chatID, replyTo int64, audio transport.AudioArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, audio.Path)
	if f.voiceErr != nil {
		if err := f.voiceErr(replyTo); err != nil {
			return err
		}
	}
	if f.voices == nil {
		f.voices = map[int64][]int64{}
	}
	f.voices[chatID] = append(f.voices[chatID], replyTo)
	return nil
}

func (f *fakeTransport) SendText(_ context.Context, chatID, replyTo int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{chatID: chatID, replyTo: replyTo, text: text})
	return nil
}

func (f *fakeTransport) delivered(chatID int64) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.voices[chatID]...)
}

type upperPreprocessor struct{}

func (upperPreprocessor) Preprocess(_ context.Context, text string) preprocess.Result {
	return preprocess.Result{FinalText: strings.ToUpper(text) + "."}
}

type harness struct {
	jobs      *queue.ChatQueue
	locks     *queue.DrainLocks
	synth     *fakeSynth
	transport *fakeTransport
	history   *repository.MemoryJobsRepository
	worker    *DrainWorker
	tempDir   string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		jobs:      queue.NewChatQueue(),
		locks:     queue.NewDrainLocks(),
		synth:     &fakeSynth{},
		transport: &fakeTransport{},
		history:   repository.NewMemoryJobsRepository(0),
		tempDir:   t.TempDir(),
	}
	cfg.TempDir = h.tempDir
	h.worker = NewDrainWorker(h.jobs, h.locks, upperPreprocessor{}, h.synth, h.transport, h.history, nil, nil, cfg)
	return h
}

func (h *harness) enqueue(chatID, messageID int64, payload domain.JobPayload) *domain.Job {
	payload.ReplyToMessageID = messageID
	if payload.Text == "" {
		payload.Text = fmt.Sprintf("сообщение %d", messageID)
	}
	if payload.Source == "" {
		payload.Source = domain.SourceDirect
	}
	return h.jobs.Enqueue(chatID, domain.JobID(chatID, messageID), payload)
}

func TestDrainDeliversInEnqueueOrder(t *testing.T) {
	h := newHarness(t, Config{})
	for messageID := int64(1); messageID <= 5; messageID++ {
		h.enqueue(1, messageID, domain.JobPayload{})
	}
	h.enqueue(2, 1, domain.JobPayload{})

	h.worker.Drain(context.Background(), 1)
	h.worker.Drain(context.Background(), 2)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, h.transport.delivered(1))
	assert.Equal(t, []int64{1}, h.transport.delivered(2))
	assert.True(t, h.jobs.IsEmpty(1))
	assert.False(t, h.locks.Held(1))

	record, err := h.history.GetJob(context.Background(), "1-5")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSent, record.Status)
	assert.Equal(t, int64(5), record.Sequence)
	assert.Equal(t, "fake_tts", record.Engine)
}

func TestConcurrentDrainsNeverOverlapPerChat(t *testing.T) {
	h := newHarness(t, Config{})
	h.synth.delay = 2 * time.Millisecond

	var wg sync.WaitGroup
	for messageID := int64(1); messageID <= 20; messageID++ {
		h.enqueue(7, messageID, domain.JobPayload{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.worker.Drain(context.Background(), 7)
		}()
	}
	wg.Wait()
	h.worker.Drain(context.Background(), 7)

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.synth.maxSeen))
	delivered := h.transport.delivered(7)
	require.Len(t, delivered, 20)
	for i, replyTo := range delivered {
		assert.Equal(t, int64(i+1), replyTo)
	}
}

func TestScheduledBurstIsDeliveredInOrder(t *testing.T) {
	h := newHarness(t, Config{})
	h.synth.delay = time.Millisecond

	for messageID := int64(1); messageID <= 5; messageID++ {
		h.enqueue(3, messageID, domain.JobPayload{})
		h.worker.Schedule(context.Background(), 3)
	}
	h.worker.Wait()

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, h.transport.delivered(3))
	assert.True(t, h.jobs.IsEmpty(3))
}

func TestMissingAssetFailsJobAndDrainContinues(t *testing.T) {
	h := newHarness(t, Config{})
	h.synth.fail = func(request synthesis.Request) error {
		if strings.HasSuffix(request.OutputPath, "4-1") {
			return &synthesis.AssetError{Path: "/models/ru.onnx", Err: os.ErrNotExist}
		}
		return nil
	}
	h.enqueue(4, 1, domain.JobPayload{})
	h.enqueue(4, 2, domain.JobPayload{})

	h.worker.Drain(context.Background(), 4)

	assert.False(t, h.locks.Held(4))
	assert.Equal(t, []int64{2}, h.transport.delivered(4))
	require.Len(t, h.transport.texts, 1)
	assert.Equal(t, sentText{chatID: 4, replyTo: 1, text: "синтез недоступен: отсутствует модель или путь"}, h.transport.texts[0])

	failed, err := h.history.GetJob(context.Background(), "4-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "ru.onnx")

	sent, err := h.history.GetJob(context.Background(), "4-2")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSent, sent.Status)
}

func TestQuotaErrorSendsExplanation(t *testing.T) {
	h := newHarness(t, Config{})
	h.transport.voiceErr = func(int64) error {
		return &transport.QuotaError{Reason: transport.QuotaPermission, Description: "Bad Request: VOICE_MESSAGES_FORBIDDEN"}
	}
	job := h.enqueue(5, 1, domain.JobPayload{})

	h.worker.Drain(context.Background(), 5)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.Len(t, h.transport.texts, 1)
	assert.Equal(t, msgVoiceForbidden, h.transport.texts[0].text)
}

func TestSynthesisDeadlineSendsTimeoutMessage(t *testing.T) {
	h := newHarness(t, Config{SynthesisTimeout: 90 * time.Second})
	h.synth.fail = func(synthesis.Request) error {
		return fmt.Errorf("piper: %w", context.DeadlineExceeded)
	}
	job := h.enqueue(6, 1, domain.JobPayload{})

	h.worker.Drain(context.Background(), 6)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Empty(t, h.transport.delivered(6))
	require.Len(t, h.transport.texts, 1)
	assert.Equal(t, "Синтез не уложился в 90 сек. Попробуйте сократить текст или увеличьте SYNTHESIS_TIMEOUT.", h.transport.texts[0].text)
}

func TestPanicIsRecoveredAsFault(t *testing.T) {
	h := newHarness(t, Config{Debug: true})
	h.synth.fail = func(synthesis.Request) error { panic("engine crashed") }
	job := h.enqueue(6, 1, domain.JobPayload{})

	require.NotPanics(t, func() { h.worker.Drain(context.Background(), 6) })

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.Len(t, h.transport.texts, 1)
	assert.True(t, strings.HasPrefix(h.transport.texts[0].text, msgGenericFailure+"\n\n"))
	assert.Contains(t, h.transport.texts[0].text, "engine crashed")
	assert.False(t, h.locks.Held(6))
}

func TestTempFilesAreAlwaysRemoved(t *testing.T) {
	h := newHarness(t, Config{})
	h.transport.voiceErr = func(replyTo int64) error {
		if replyTo == 2 {
			return errors.New("connection reset")
		}
		return nil
	}
	h.enqueue(8, 1, domain.JobPayload{})
	h.enqueue(8, 2, domain.JobPayload{})

	h.worker.Drain(context.Background(), 8)

	require.Len(t, h.transport.seen, 2)
	assert.Equal(t, "8-1.ogg", filepath.Base(h.transport.seen[0]))
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(h.transport.seen[0])), "voice-"))
	assert.NotEqual(t, filepath.Dir(h.transport.seen[0]), filepath.Dir(h.transport.seen[1]))
	for _, path := range h.transport.seen {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "expected %s removed", path)
	}
	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrefixIsPreprocessed(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(9, 1, domain.JobPayload{Source: domain.SourceForwardedChannel, ChannelTitle: "Новости"})
	h.enqueue(9, 2, domain.JobPayload{Source: domain.SourceForwardedUser})
	h.enqueue(9, 3, domain.JobPayload{Source: domain.SourceDirect})

	h.worker.Drain(context.Background(), 9)

	require.Len(t, h.synth.requests, 3)
	assert.Equal(t, "ПОСТ ИЗ КАНАЛА НОВОСТИ.", h.synth.requests[0].Prefix)
	assert.Empty(t, h.synth.requests[1].Prefix)
	assert.Empty(t, h.synth.requests[2].Prefix)
}

func TestDrainReturnsWhenChatIsLocked(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(10, 1, domain.JobPayload{})
	require.True(t, h.locks.TryAcquire(10))

	h.worker.Drain(context.Background(), 10)
	assert.Empty(t, h.transport.delivered(10))
	assert.False(t, h.jobs.IsEmpty(10))

	h.locks.Release(10)
	h.worker.Drain(context.Background(), 10)
	assert.Equal(t, []int64{1}, h.transport.delivered(10))
}

func TestCancelledContextStopsBeforeNextJob(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(11, 1, domain.JobPayload{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.worker.Drain(ctx, 11)

	assert.Empty(t, h.transport.delivered(11))
	assert.False(t, h.locks.Held(11))
	assert.Equal(t, 1, h.jobs.Len(11))
}
