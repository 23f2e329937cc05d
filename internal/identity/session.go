package identity

import "sync"

// Session tracks the current principal for one user session and notifies
// watchers when it changes. Reads reflect the latest known auth state and may
// lag the provider by one notification cycle; watchers are invoked after the
// new state is visible, so a watcher reading back Current sees the change.
type Session struct {
	mu        sync.Mutex
	principal *Principal
	tokens    TokenSource
	watchers  []func(p *Principal)
}

func NewSession() *Session {
	return &Session{}
}

// Current returns the latest known principal, or false when anonymous.
func (s *Session) Current() (Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return Principal{}, false
	}
	return *s.principal, true
}

// Caller snapshots the session into a Caller usable for one request.
func (s *Session) Caller() Caller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return Anonymous
	}
	p := *s.principal
	return Caller{Principal: &p, Tokens: s.tokens}
}

// SignIn installs a principal and its token source, replacing any previous
// session state, and notifies watchers.
func (s *Session) SignIn(p Principal, tokens TokenSource) {
	s.mu.Lock()
	s.principal = &p
	s.tokens = tokens
	watchers := append([]func(*Principal){}, s.watchers...)
	s.mu.Unlock()
	for _, w := range watchers {
		w(&p)
	}
}

// SignOut clears the principal and notifies watchers with nil.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.principal = nil
	s.tokens = nil
	watchers := append([]func(*Principal){}, s.watchers...)
	s.mu.Unlock()
	for _, w := range watchers {
		w(nil)
	}
}

// Watch registers fn to run on every principal change. fn receives the new
// principal, or nil on sign-out. Watchers run on the goroutine performing
// the change and must not block.
func (s *Session) Watch(fn func(p *Principal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}
