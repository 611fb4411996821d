package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrNoCredentials is reported when sign-in runs without a configured user.
var ErrNoCredentials = errors.New("identity: no credentials configured")

// StaticConfig configures the config-backed authenticator: a pre-provisioned
// user standing in for the hosted sign-in redirect.
type StaticConfig struct {
	Provider ProviderConfig
	Email    string
	Username string
	// AutoSignIn completes the flow at startup, the equivalent of landing
	// on the redirect URI with a valid code.
	AutoSignIn bool
}

// Static resolves identity from configuration. Deployments front real
// traffic with the hosted provider; this one serves local operation, where
// the operator is the only viewer.
type Static struct {
	cfg StaticConfig

	mu      sync.Mutex
	state   State
	updates chan State
	closed  bool
}

// NewStatic creates a config-backed authenticator. The initial state is
// loading until Resolve or SignIn settles it.
func NewStatic(cfg StaticConfig) *Static {
	return &Static{
		cfg:     cfg,
		state:   State{Loading: true},
		updates: make(chan State, 4),
	}
}

// Resolve settles the initial loading state: signs in when AutoSignIn is set
// and credentials exist, otherwise lands on the sign-in prompt.
func (s *Static) Resolve(ctx context.Context) {
	if s.cfg.AutoSignIn && s.cfg.Email != "" {
		if err := s.SignIn(ctx); err != nil {
			s.push(State{Err: err})
		}
		return
	}
	s.push(State{})
}

// SignIn completes the configured sign-in.
func (s *Static) SignIn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Email == "" {
		s.push(State{Err: ErrNoCredentials})
		return ErrNoCredentials
	}
	user := &User{
		Sub:      uuid.NewString(),
		Email:    s.cfg.Email,
		Username: s.cfg.Username,
	}
	if user.Username == "" {
		user.Username = user.Email
	}
	log.WithFields(log.Fields{
		"email":    user.Email,
		"username": user.Username,
	}).Info("viewer signed in")
	s.push(State{Authenticated: true, User: user})
	return nil
}

// SignOut drops the session.
func (s *Static) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.push(State{})
	return nil
}

// Current returns the latest state snapshot.
func (s *Static) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Updates delivers state snapshots. Slow consumers lose intermediate
// snapshots, never the latest one.
func (s *Static) Updates() <-chan State {
	return s.updates
}

// Close shuts the update stream.
func (s *Static) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

func (s *Static) push(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	if s.closed {
		return
	}
	select {
	case s.updates <- next:
	default:
		// Drop the oldest buffered snapshot to make room for the latest.
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- next:
		default:
		}
	}
}
