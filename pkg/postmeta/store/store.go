package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Store persists per-post extraction checkpoints so an interrupted batch can
// be rerun without repeating model calls for posts that already succeeded.
// Implementations must be safe for concurrent use.
type Store interface {
	Close() error

	// Extractions
	GetExtraction(ctx context.Context, key string) (Extraction, bool, error)
	PutExtraction(ctx context.Context, e Extraction) error

	// Runs
	StartRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
}

// Extraction is a checkpointed metadata result for one post.
type Extraction struct {
	Key       string // see Key
	RunID     string
	Index     int // position of the post in the run's input
	LineCount int
	Language  string
	Tags      []string
	CreatedAt time.Time
}

// Run records one pipeline execution.
type Run struct {
	ID         string
	Source     string
	Posts      int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Key identifies an extraction by the model that produced it and the
// sanitized post text it was produced from.
func Key(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
