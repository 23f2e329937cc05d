package payment

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
)

// Manager ties initiation and confirmation together and enforces the
// at-most-one-active-session-per-principal invariant.
type Manager struct {
	initiator *Initiator
	poller    *Poller
	logger    zerolog.Logger

	mu       sync.Mutex
	byID     map[string]*Session // correlation id -> session
	active   map[string]*Session // principal id -> last session
	claiming map[string]bool     // principal ids with an initiation in flight
}

func NewManager(initiator *Initiator, poller *Poller, logger zerolog.Logger) *Manager {
	return &Manager{
		initiator: initiator,
		poller:    poller,
		logger:    logger,
		byID:      map[string]*Session{},
		active:    map[string]*Session{},
		claiming:  map[string]bool{},
	}
}

// Begin validates the phone number, initiates a charge and starts the
// confirmation poller. The poller outlives the initiating request, so it runs
// on a background context; teardown goes through Session.Cancel.
func (m *Manager) Begin(ctx context.Context, caller identity.Caller, phoneNumber string) (*Session, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrNoCredential
	}
	if err := domain.ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, &domain.PaymentInitError{Message: err.Error()}
	}

	uid := caller.Principal.ID
	m.mu.Lock()
	if existing, ok := m.active[uid]; ok && !existing.Status().Terminal() {
		m.mu.Unlock()
		return nil, domain.ErrPaymentInProgress
	}
	if m.claiming[uid] {
		m.mu.Unlock()
		return nil, domain.ErrPaymentInProgress
	}
	m.claiming[uid] = true
	m.mu.Unlock()

	correlationID, err := m.initiator.Initiate(ctx, caller, phoneNumber)
	if err != nil {
		m.mu.Lock()
		delete(m.claiming, uid)
		m.mu.Unlock()
		return nil, err
	}

	session := m.poller.Watch(context.Background(), caller, correlationID, phoneNumber)

	m.mu.Lock()
	delete(m.claiming, uid)
	m.active[uid] = session
	m.byID[correlationID] = session
	m.mu.Unlock()

	return session, nil
}

// Get looks a session up by its correlation id.
func (m *Manager) Get(correlationID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[correlationID]
	return s, ok
}

// Cancel tears down a pending session. It reports false for unknown ids.
func (m *Manager) Cancel(correlationID string) bool {
	s, ok := m.Get(correlationID)
	if !ok {
		return false
	}
	s.Cancel()
	return true
}
