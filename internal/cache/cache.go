package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one cached transliteration.
type Entry struct {
	Text          string    `json:"text"`
	ModelID       string    `json:"model_id"`
	PromptVersion string    `json:"prompt_version"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type Config struct {
	TTL        time.Duration
	MaxEntries int
}

// Store is implemented by MemoryStore and RedisStore. A miss is (Entry{}, false, nil).
type Store interface {
	Get(ctx context.Context, signature string) (Entry, bool, error)
	Set(ctx context.Context, signature string, entry Entry) error
	Close() error
}

// BuildSignature hashes the parts that determine a model output. Case is
// kept: "IT" and "it" transliterate differently.
func BuildSignature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.TrimSpace(part))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "||")))
	return hex.EncodeToString(sum[:])
}
