// Package viewcount records advisory view counts for played media.
package viewcount

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const defaultIncrementTimeout = 5 * time.Second

// Incrementer applies one atomic increment to a media item's counter.
type Incrementer interface {
	IncrementViews(ctx context.Context, mediaID string) error
}

// Recorder counts origin requests. Failures are logged, never returned.
type Recorder struct {
	inc     Incrementer
	logger  *slog.Logger
	timeout time.Duration
}

// NewRecorder creates a recorder backed by inc.
func NewRecorder(inc Incrementer, logger *slog.Logger) *Recorder {
	return &Recorder{inc: inc, logger: logger, timeout: defaultIncrementTimeout}
}

// MaybeIncrement increments mediaID once when origin is set. Seeks are
// ignored. The increment outlives cancellation of ctx.
func (r *Recorder) MaybeIncrement(ctx context.Context, mediaID string, origin bool) {
	if r == nil || r.inc == nil || !origin {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.inc.IncrementViews(ctx, mediaID); err != nil {
		r.log().Warn("view count increment failed", "media_id", mediaID, "error", err)
	}
}

func (r *Recorder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Memory is an in-process counter set. Updates to one key are serialized.
type Memory struct {
	counts *xsync.MapOf[string, int64]
}

// NewMemory creates an empty in-memory counter set.
func NewMemory() *Memory {
	return &Memory{counts: xsync.NewMapOf[string, int64]()}
}

// IncrementViews adds one to mediaID.
func (m *Memory) IncrementViews(ctx context.Context, mediaID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.counts.Compute(mediaID, func(old int64, _ bool) (int64, bool) {
		return old + 1, false
	})
	return nil
}

// Views returns the current count for mediaID.
func (m *Memory) Views(mediaID string) int64 {
	v, _ := m.counts.Load(mediaID)
	return v
}

// Forget drops mediaID's counter.
func (m *Memory) Forget(mediaID string) {
	m.counts.Delete(mediaID)
}
