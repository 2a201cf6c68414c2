package synthesis

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// FormatMetrics renders "<label> load_ms=<n|n/a> synth_ms=<n> duration_s=<f>".
func FormatMetrics(label string, result Result) string {
	load := "n/a"
	if result.ModelLoadMS != nil {
		load = strconv.FormatInt(*result.ModelLoadMS, 10)
	}
	return fmt.Sprintf("%s load_ms=%s synth_ms=%d duration_s=%.2f", label, load, result.SynthMS, result.DurationSeconds)
}

// MetricsLog appends one line per synthesis outcome to a file. A zero path
// disables it.
type MetricsLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewMetricsLog(path string) *MetricsLog {
	return &MetricsLog{path: path, now: time.Now}
}

func (m *MetricsLog) Success(label string, result Result) error {
	return m.append(FormatMetrics(label, result))
}

func (m *MetricsLog) Failure(label string, err error) error {
	return m.append(fmt.Sprintf("%s failed error=%q", label, err.Error()))
}

func (m *MetricsLog) append(line string) error {
	if m == nil || m.path == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	file, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open metrics file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s %s\n", m.now().UTC().Format(time.RFC3339), line); err != nil {
		return fmt.Errorf("write metrics line: %w", err)
	}
	return nil
}
