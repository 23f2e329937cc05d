// Package quota tracks the anonymous free-generation counter. The counter is
// local to one device profile and is consulted only while no principal is
// present; it is wiped on the transition to authenticated.
package quota

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
)

// MaxAnonymous is the number of free generations an anonymous caller gets.
const MaxAnonymous = 3

// counterKey names the single persisted entry. Presence distinguishes "never
// used" from an explicit reset to zero.
const counterKey = "anonymousPostCount"

// Store is the local key-value persistence behind the tracker.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Tracker counts anonymous generations against MaxAnonymous. Storage failures
// are deliberately fail-open: an unreadable counter behaves as zero, and a
// failed write is logged and dropped. The remote service enforces its own
// limits, so local quota is a courtesy, not a security boundary.
type Tracker struct {
	store  Store
	logger zerolog.Logger
}

func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Count returns the persisted anonymous counter, zero when absent or
// unreadable.
func (t *Tracker) Count(ctx context.Context) int {
	raw, ok, err := t.store.Get(ctx, counterKey)
	if err != nil {
		t.logger.Warn().Err(err).Msg("quota: read failed, treating count as 0")
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		t.logger.Warn().Str("value", raw).Msg("quota: invalid stored count, treating as 0")
		return 0
	}
	return n
}

// Remaining returns how many free generations are left, never negative.
func (t *Tracker) Remaining(ctx context.Context) int {
	if n := t.Count(ctx); n < MaxAnonymous {
		return MaxAnonymous - n
	}
	return 0
}

// Increment bumps and persists the counter, returning the new count. The
// write lands before the next read on the same goroutine.
func (t *Tracker) Increment(ctx context.Context) int {
	n := t.Count(ctx) + 1
	if err := t.store.Set(ctx, counterKey, strconv.Itoa(n)); err != nil {
		t.logger.Warn().Err(err).Msg("quota: persist failed")
	}
	return n
}

// Reset clears the persisted counter. Called on the anonymous-to-authenticated
// transition so local usage cannot double-count against the durable record.
func (t *Tracker) Reset(ctx context.Context) {
	if err := t.store.Delete(ctx, counterKey); err != nil {
		t.logger.Warn().Err(err).Msg("quota: reset failed")
	}
}
