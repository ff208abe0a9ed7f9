package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/suggestit/core"
)

var (
	// ErrEntryRequired is returned when Put is called with a nil entry.
	ErrEntryRequired = errors.New("cache entry required")

	// ErrWriteDropped is returned when a backend declines to store an entry.
	ErrWriteDropped = errors.New("cache write dropped")

	// ErrClientRequired is returned when a Redis cache is built without a client.
	ErrClientRequired = errors.New("redis client required")
)

// Cache stores ranked results by fingerprint.
type Cache interface {
	// Get returns the live entry for fingerprint. Expired entries are reported
	// as misses.
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)

	// Put stores entry under entry.Fingerprint, replacing any previous value.
	Put(ctx context.Context, entry *Entry) error

	// Close releases the backend.
	Close() error
}

// Entry is a memoized ranking result.
type Entry struct {
	Fingerprint string           `json:"fingerprint"`
	CreatedAt   time.Time        `json:"created_at"`
	TTL         time.Duration    `json:"ttl"`
	Suggestions []string         `json:"suggestions"`
	Cards       []core.Card      `json:"cards"`
	Debug       *core.DebugTrace `json:"debug,omitempty"`
}

// Expired reports whether more than TTL has passed since the entry was created.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Key holds the request fields a ranked result depends on.
type Key struct {
	Query     string
	UserID    string
	Latitude  *float64
	Longitude *float64
	Intent    string
	RadiusKm  *float64
}

// Fingerprint returns a stable hex digest of k. The query is lowercased and its
// whitespace collapsed; nil coordinates and radius encode as null.
func Fingerprint(k Key) string {
	// encoding/json writes map keys in sorted order
	payload, _ := json.Marshal(map[string]any{
		"q":      strings.Join(strings.Fields(strings.ToLower(k.Query)), " "),
		"uid":    k.UserID,
		"lat":    k.Latitude,
		"lon":    k.Longitude,
		"intent": k.Intent,
		"radius": k.RadiusKm,
	})
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
