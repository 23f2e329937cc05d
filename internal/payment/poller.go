package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
)

const endpointStatus = "/check-payment-status/"

const (
	// DefaultInterval is the fixed gap between status queries while PENDING.
	DefaultInterval = 5 * time.Second
	// DefaultDeadline is the wall-clock limit on the whole confirmation,
	// measured from initiation. It runs on its own timer, independent of
	// ticks; transient query failures consume deadline time.
	DefaultDeadline = 120 * time.Second
)

// SubscriptionWriter performs the durable subscription merge on a confirmed
// payment. Implemented by the usage ledger.
type SubscriptionWriter interface {
	MarkSubscribed(ctx context.Context, principalID, phoneNumber string, at time.Time) error
}

// PollerOptions configures a Poller. Zero interval and deadline take the
// defaults above.
type PollerOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Interval   time.Duration
	Deadline   time.Duration
	// OnTerminal observes every session reaching a terminal state.
	OnTerminal func(status domain.PaymentStatus)
}

// Poller drives payment sessions from PENDING to a terminal state.
type Poller struct {
	baseURL    string
	client     *http.Client
	writer     SubscriptionWriter
	logger     zerolog.Logger
	interval   time.Duration
	deadline   time.Duration
	onTerminal func(status domain.PaymentStatus)
}

func NewPoller(opts PollerOptions, writer SubscriptionWriter, logger zerolog.Logger) (*Poller, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("payment base url is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("subscription writer is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Poller{
		baseURL:    opts.BaseURL,
		client:     client,
		writer:     writer,
		logger:     logger,
		interval:   interval,
		deadline:   deadline,
		onTerminal: opts.OnTerminal,
	}, nil
}

// Session is one payment confirmation in flight. It owns its state from
// Watch until a terminal transition, after which it only reports.
type Session struct {
	correlationID string
	phoneNumber   string
	userID        string

	mu     sync.Mutex
	status domain.PaymentStatus
	err    error

	done   chan struct{}
	cancel context.CancelFunc
}

func (s *Session) CorrelationID() string {
	return s.correlationID
}

// Status returns the current state of the session.
func (s *Session) Status() domain.PaymentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the terminal error, if any: ErrPaymentTimeout, ErrPaymentFailed
// or a cancellation cause. Nil while PENDING and on COMPLETED.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done closes when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel tears the session down. All pending ticks and the deadline timer
// stop, and no further store writes occur on behalf of this session.
func (s *Session) Cancel() {
	s.cancel()
}

// Snapshot returns the session as a domain value.
func (s *Session) Snapshot() domain.PaymentSession {
	return domain.PaymentSession{
		CorrelationID: s.correlationID,
		PhoneNumber:   s.phoneNumber,
		Status:        s.Status(),
	}
}

// transition moves the session to a terminal state. It is a no-op when the
// session is already terminal, which makes the tick/deadline race benign: the
// first to fire wins, the other observes terminality and does nothing.
func (s *Session) transition(to domain.PaymentStatus, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = to
	s.err = err
	close(s.done)
	return true
}

type statusResponse struct {
	Status string `json:"status"`
}

// Watch starts confirming an initiated charge in the background. The caller's
// token source authenticates every status query; the returned Session reports
// progress and supports cancellation.
func (p *Poller) Watch(ctx context.Context, caller identity.Caller, correlationID, phoneNumber string) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		correlationID: correlationID,
		phoneNumber:   phoneNumber,
		userID:        principalID(caller),
		status:        domain.PaymentPending,
		done:          make(chan struct{}),
		cancel:        cancel,
	}
	go p.run(ctx, caller, s)
	return s
}

func (p *Poller) run(ctx context.Context, caller identity.Caller, s *Session) {
	defer s.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.deadline)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.transition(domain.PaymentFailed, context.Cause(ctx)) {
				p.logger.Info().Str("checkout_request_id", s.correlationID).Msg("payment: session cancelled")
				p.emitTerminal(domain.PaymentFailed)
			}
			return

		case <-deadline.C:
			if s.transition(domain.PaymentTimedOut, domain.ErrPaymentTimeout) {
				p.logger.Warn().Str("checkout_request_id", s.correlationID).Msg("payment: confirmation timed out")
				p.emitTerminal(domain.PaymentTimedOut)
			}
			return

		case <-ticker.C:
			status, err := p.query(ctx, caller, s.correlationID)
			if err != nil {
				// Transient failure: a missed tick, not a verdict.
				p.logger.Warn().Err(err).Str("checkout_request_id", s.correlationID).Msg("payment: status query failed")
				continue
			}
			switch status {
			case string(domain.PaymentCompleted):
				if err := p.writer.MarkSubscribed(ctx, s.userID, s.phoneNumber, time.Now()); err != nil {
					// Keep polling; the subscription write must land before
					// the session completes.
					p.logger.Error().Err(err).Str("user_id", s.userID).Msg("payment: subscription write failed")
					continue
				}
				if s.transition(domain.PaymentCompleted, nil) {
					p.logger.Info().Str("checkout_request_id", s.correlationID).Msg("payment: completed")
					p.emitTerminal(domain.PaymentCompleted)
				}
				return
			case string(domain.PaymentFailed), "CANCELLED":
				if s.transition(domain.PaymentFailed, domain.ErrPaymentFailed) {
					p.logger.Warn().Str("checkout_request_id", s.correlationID).Str("gateway_status", status).Msg("payment: gateway reported failure")
					p.emitTerminal(domain.PaymentFailed)
				}
				return
			default:
				// Still pending at the gateway.
			}
		}
	}
}

func (p *Poller) query(ctx context.Context, caller identity.Caller, correlationID string) (string, error) {
	token, err := caller.BearerToken(ctx)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpointStatus+correlationID, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewRemoteError(resp.StatusCode, "")
	}
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return out.Status, nil
}

func (p *Poller) emitTerminal(status domain.PaymentStatus) {
	if p.onTerminal != nil {
		p.onTerminal(status)
	}
}

func principalID(caller identity.Caller) string {
	if caller.Authenticated() {
		return caller.Principal.ID
	}
	return ""
}
