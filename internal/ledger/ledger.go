// Package ledger records successful generations against either the durable
// per-user record or the local anonymous counter, and owns the subscription
// merge-write performed on confirmed payments.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
	"contentgen/internal/quota"
)

// Store is the durable record-store boundary: documents keyed by principal
// id, read whole and written as field merges. Merge semantics are last-write-
// wins; concurrent sessions for the same principal may lose counter updates,
// which the product accepts.
type Store interface {
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	Merge(ctx context.Context, key string, fields map[string]any) error
}

type Ledger struct {
	store  Store
	quota  *quota.Tracker
	logger zerolog.Logger
}

func New(store Store, tracker *quota.Tracker, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, quota: tracker, logger: logger}
}

// Usage returns the usage record for a principal, creating it with a zero
// post count when absent.
func (l *Ledger) Usage(ctx context.Context, principalID string) (domain.UsageRecord, error) {
	doc, ok, err := l.store.Get(ctx, principalID)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("load usage record: %w", err)
	}
	if !ok {
		if err := l.store.Merge(ctx, principalID, map[string]any{domain.FieldPostCount: 0}); err != nil {
			return domain.UsageRecord{}, fmt.Errorf("create usage record: %w", err)
		}
		return domain.UsageRecord{}, nil
	}
	return domain.UsageRecordFromDoc(doc), nil
}

// RecordSuccess accounts for one successful generation. For authenticated
// callers it bumps the durable post count and returns the new value; for
// anonymous callers it bumps the local tracker and returns postCount 0.
// limitReached reports that the anonymous counter just hit its cap, a
// boundary condition for the caller to prompt sign-in, not an error.
func (l *Ledger) RecordSuccess(ctx context.Context, caller identity.Caller) (postCount int, limitReached bool, err error) {
	if caller.Authenticated() {
		rec, err := l.Usage(ctx, caller.Principal.ID)
		if err != nil {
			return 0, false, err
		}
		next := rec.PostCount + 1
		fields := map[string]any{domain.FieldPostCount: next}
		if err := l.store.Merge(ctx, caller.Principal.ID, fields); err != nil {
			return 0, false, fmt.Errorf("record generation: %w", err)
		}
		return next, false, nil
	}

	count := l.quota.Increment(ctx)
	return 0, count >= quota.MaxAnonymous, nil
}

// MarkSubscribed flips the principal's subscription flag with the confirming
// payment details. The flag is never reset once set.
func (l *Ledger) MarkSubscribed(ctx context.Context, principalID, phoneNumber string, at time.Time) error {
	fields := map[string]any{
		domain.FieldSubscription:     true,
		domain.FieldSubscriptionDate: at.UTC().Format(time.RFC3339),
		domain.FieldPhoneNumber:      phoneNumber,
	}
	if err := l.store.Merge(ctx, principalID, fields); err != nil {
		return fmt.Errorf("mark subscribed: %w", err)
	}
	l.logger.Info().Str("user_id", principalID).Msg("ledger: subscription recorded")
	return nil
}
