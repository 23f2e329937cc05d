package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeWriter) MarkSubscribed(ctx context.Context, principalID, phoneNumber string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, principalID+"/"+phoneNumber)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func authedCaller() identity.Caller {
	return identity.Caller{
		Principal: &identity.Principal{ID: "user-1", DisplayName: "Jess"},
		Tokens:    identity.StaticTokenSource("id-token"),
	}
}

func newTestPoller(t *testing.T, rt roundTripFunc, writer SubscriptionWriter, interval, deadline time.Duration) *Poller {
	t.Helper()
	p, err := NewPoller(PollerOptions{
		BaseURL:    "https://api.example.test",
		HTTPClient: &http.Client{Transport: rt},
		Interval:   interval,
		Deadline:   deadline,
	}, writer, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPoller returned error: %v", err)
	}
	return p
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not reach a terminal state, status=%s", s.Status())
	}
}

func TestPollerCompletesAndWritesSubscriptionOnce(t *testing.T) {
	var queries atomic.Int64
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		n := queries.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer id-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if !strings.HasPrefix(r.URL.Path, "/check-payment-status/") {
			t.Errorf("path = %q, want status endpoint", r.URL.Path)
		}
		if n < 3 {
			return jsonResponse(200, `{"status":"PENDING"}`), nil
		}
		return jsonResponse(200, `{"status":"COMPLETED"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	waitDone(t, s)

	if got := s.Status(); got != domain.PaymentCompleted {
		t.Fatalf("Status = %s, want COMPLETED", got)
	}
	if s.Err() != nil {
		t.Fatalf("Err = %v, want nil on completion", s.Err())
	}
	if writer.count() != 1 {
		t.Fatalf("MarkSubscribed called %d times, want exactly 1", writer.count())
	}
	if writer.calls[0] != "user-1/254712345678" {
		t.Fatalf("MarkSubscribed args = %q", writer.calls[0])
	}

	// No further queries after the terminal transition.
	settled := queries.Load()
	time.Sleep(30 * time.Millisecond)
	if got := queries.Load(); got != settled {
		t.Fatalf("queries continued after completion: %d -> %d", settled, got)
	}
}

func TestPollerTimesOutExactlyOnce(t *testing.T) {
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"PENDING"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, 40*time.Millisecond)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	waitDone(t, s)

	if got := s.Status(); got != domain.PaymentTimedOut {
		t.Fatalf("Status = %s, want TIMED_OUT", got)
	}
	if !errors.Is(s.Err(), domain.ErrPaymentTimeout) {
		t.Fatalf("Err = %v, want ErrPaymentTimeout", s.Err())
	}
	if writer.count() != 0 {
		t.Fatalf("MarkSubscribed called %d times on timeout, want 0", writer.count())
	}

	// Terminal states are sticky: a late transition attempt is a no-op.
	if s.transition(domain.PaymentCompleted, nil) {
		t.Fatal("transition out of a terminal state must be refused")
	}
	if got := s.Status(); got != domain.PaymentTimedOut {
		t.Fatalf("Status after refused transition = %s, want TIMED_OUT", got)
	}
}

func TestPollerToleratesTransientQueryFailures(t *testing.T) {
	var queries atomic.Int64
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch queries.Add(1) {
		case 1:
			return nil, errors.New("connection reset")
		case 2:
			return jsonResponse(502, `bad gateway`), nil
		default:
			return jsonResponse(200, `{"status":"COMPLETED"}`), nil
		}
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	waitDone(t, s)

	if got := s.Status(); got != domain.PaymentCompleted {
		t.Fatalf("Status = %s, want COMPLETED after transient failures", got)
	}
	if writer.count() != 1 {
		t.Fatalf("MarkSubscribed called %d times, want 1", writer.count())
	}
}

func TestPollerGatewayFailureIsTerminal(t *testing.T) {
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"FAILED"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	waitDone(t, s)

	if got := s.Status(); got != domain.PaymentFailed {
		t.Fatalf("Status = %s, want FAILED", got)
	}
	if !errors.Is(s.Err(), domain.ErrPaymentFailed) {
		t.Fatalf("Err = %v, want ErrPaymentFailed", s.Err())
	}
	if writer.count() != 0 {
		t.Fatalf("MarkSubscribed called %d times on failure, want 0", writer.count())
	}
}

func TestPollerCancellationStopsWrites(t *testing.T) {
	var queries atomic.Int64
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		queries.Add(1)
		return jsonResponse(200, `{"status":"PENDING"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	time.Sleep(15 * time.Millisecond)
	s.Cancel()
	waitDone(t, s)

	if got := s.Status(); !got.Terminal() {
		t.Fatalf("Status after cancel = %s, want terminal", got)
	}
	if writer.count() != 0 {
		t.Fatalf("MarkSubscribed called %d times after cancel, want 0", writer.count())
	}
	settled := queries.Load()
	time.Sleep(30 * time.Millisecond)
	if got := queries.Load(); got != settled {
		t.Fatalf("queries continued after cancel: %d -> %d", settled, got)
	}
}

func TestPollerUnknownStatusStaysPending(t *testing.T) {
	var queries atomic.Int64
	writer := &fakeWriter{}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		queries.Add(1)
		return jsonResponse(200, `{"status":"PROCESSING"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	defer s.Cancel()

	time.Sleep(30 * time.Millisecond)
	if got := s.Status(); got != domain.PaymentPending {
		t.Fatalf("Status = %s, want PENDING on unknown gateway status", got)
	}
	if queries.Load() < 2 {
		t.Fatalf("queries = %d, want polling to continue", queries.Load())
	}
}

func TestPollerRetriesWhenSubscriptionWriteFails(t *testing.T) {
	writer := &fakeWriter{err: errors.New("store down")}
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"COMPLETED"}`), nil
	})
	p := newTestPoller(t, rt, writer, 5*time.Millisecond, time.Minute)

	s := p.Watch(context.Background(), authedCaller(), "ws_CO_123", "254712345678")
	time.Sleep(20 * time.Millisecond)
	if got := s.Status(); got != domain.PaymentPending {
		t.Fatalf("Status = %s, want PENDING while the write keeps failing", got)
	}

	writer.mu.Lock()
	writer.err = nil
	writer.mu.Unlock()
	waitDone(t, s)

	if got := s.Status(); got != domain.PaymentCompleted {
		t.Fatalf("Status = %s, want COMPLETED once the write lands", got)
	}
	if writer.count() != 1 {
		t.Fatalf("MarkSubscribed recorded %d writes, want 1", writer.count())
	}
}
