// Package content coordinates one generation attempt end to end: quota check,
// remote call, usage accounting, and the state the presentation layer reads
// back.
package content

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/generate"
	"contentgen/internal/identity"
	"contentgen/internal/ledger"
	"contentgen/internal/quota"
)

// Outcome is one attempt's view for the caller who made it. PostCount is the
// caller's durable count after the attempt (authenticated callers only);
// Remaining is the anonymous allowance left (anonymous callers only).
type Outcome struct {
	Result       *domain.GenerationResult
	PostCount    int
	Remaining    int
	LimitReached bool
}

// State is the bound session's observable snapshot after the last attempt.
// It is presentation input, owned here so the view layer stays dumb.
type State struct {
	Result       *domain.GenerationResult
	PostCount    int
	Remaining    int
	LimitReached bool
	ShowSignup   bool
	LastError    string
}

type Orchestrator struct {
	client  *generate.Client
	quota   *quota.Tracker
	ledger  *ledger.Ledger
	logger  zerolog.Logger
	metrics Metrics

	mu    sync.Mutex
	state State
}

// Metrics observes generation outcomes. A nil value disables observation.
type Metrics interface {
	RecordGeneration(callerClass, outcome string)
}

func New(client *generate.Client, tracker *quota.Tracker, ldg *ledger.Ledger, metrics Metrics, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		quota:   tracker,
		ledger:  ldg,
		metrics: metrics,
		logger:  logger,
	}
	o.state.Remaining = quota.MaxAnonymous
	return o
}

// Bind wires the orchestrator to a session so principal changes keep the
// local quota honest: signing in wipes the anonymous counter (it must never
// double-count against the durable record) and loads the durable usage
// snapshot; signing out clears session-derived state.
func (o *Orchestrator) Bind(session *identity.Session) {
	session.Watch(func(p *identity.Principal) {
		ctx := context.Background()
		if p == nil {
			o.handleSignOut(ctx)
			return
		}
		o.handleSignIn(ctx, *p)
	})
}

func (o *Orchestrator) handleSignIn(ctx context.Context, p identity.Principal) {
	o.quota.Reset(ctx)
	rec, err := o.ledger.Usage(ctx, p.ID)
	if err != nil {
		o.logger.Error().Err(err).Str("user_id", p.ID).Msg("content: failed to load user data")
		o.setError("Failed to load user data")
		return
	}
	o.mu.Lock()
	o.state.PostCount = rec.PostCount
	o.state.Remaining = quota.MaxAnonymous
	o.state.LimitReached = false
	o.state.ShowSignup = false
	o.mu.Unlock()
}

func (o *Orchestrator) handleSignOut(ctx context.Context) {
	o.quota.Reset(ctx)
	o.mu.Lock()
	o.state = State{Remaining: quota.MaxAnonymous}
	o.mu.Unlock()
}

// Attempt runs one attempt for the given caller and reports the outcome for
// that caller alone. Concurrent callers with different principals never see
// each other's counters. Quota exhaustion for an anonymous caller is decided
// before any network traffic and returns ErrQuotaExceeded; every other
// failure leaves quota and counters untouched.
func (o *Orchestrator) Attempt(ctx context.Context, caller identity.Caller, req domain.GenerationRequest) (Outcome, error) {
	class := callerClass(caller)

	if !caller.Authenticated() && o.quota.Remaining(ctx) == 0 {
		o.record(class, "blocked")
		return Outcome{}, domain.ErrQuotaExceeded
	}

	res, err := o.client.Generate(ctx, req, caller)
	if err != nil {
		o.logger.Error().Err(err).Str("caller", class).Msg("content: generation failed")
		o.record(class, "error")
		return Outcome{}, err
	}

	postCount, limitReached, err := o.ledger.RecordSuccess(ctx, caller)
	if err != nil {
		// The content was generated; accounting failure should not eat it.
		o.logger.Error().Err(err).Msg("content: usage accounting failed")
	}

	out := Outcome{Result: res, PostCount: postCount, LimitReached: limitReached}
	if !caller.Authenticated() {
		out.Remaining = o.quota.Remaining(ctx)
	}
	o.record(class, "ok")
	return out, nil
}

// Generate runs one attempt for the bound session's caller and folds the
// outcome into the session state. Server callers use Attempt instead: State
// belongs to the single bound session, not to any one request.
func (o *Orchestrator) Generate(ctx context.Context, caller identity.Caller, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	out, err := o.Attempt(ctx, caller, req)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			o.mu.Lock()
			o.state.ShowSignup = true
			o.state.LimitReached = true
			o.mu.Unlock()
		} else {
			o.setError(err.Error())
		}
		return nil, err
	}

	o.mu.Lock()
	o.state.Result = out.Result
	o.state.LastError = ""
	o.state.LimitReached = out.LimitReached
	o.state.ShowSignup = out.LimitReached
	if caller.Authenticated() {
		o.state.PostCount = out.PostCount
	} else {
		o.state.Remaining = out.Remaining
	}
	o.mu.Unlock()

	return out.Result, nil
}

// Remaining reports the anonymous generations left.
func (o *Orchestrator) Remaining(ctx context.Context) int {
	return o.quota.Remaining(ctx)
}

// State returns the snapshot the presentation layer renders from.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setError(msg string) {
	o.mu.Lock()
	o.state.LastError = msg
	o.state.Result = nil
	o.mu.Unlock()
}

func (o *Orchestrator) record(class, outcome string) {
	if o.metrics != nil {
		o.metrics.RecordGeneration(class, outcome)
	}
}

func callerClass(caller identity.Caller) string {
	if caller.Authenticated() {
		return "authenticated"
	}
	return "anonymous"
}
