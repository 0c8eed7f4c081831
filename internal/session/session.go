// Package session holds the signed-in user and their bearer token. Nothing is
// read from ambient storage: a session exists only after Establish and ends at
// SignOut.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/barbershop-scheduler/internal/backend"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var (
	// ErrNoSession is returned while no session is established.
	ErrNoSession = fmt.Errorf("session: no active session: %w", backend.ErrUnauthenticated)
	// ErrExpired is returned once the token's exp claim has passed.
	ErrExpired = fmt.Errorf("session: token expired: %w", backend.ErrUnauthenticated)
	// ErrMissingToken rejects Establish without a token.
	ErrMissingToken = errors.New("session: token is required")
)

// State is the session lifecycle state.
type State string

const (
	StateCleared     State = "cleared"
	StateEstablished State = "established"
)

// Session is an established session.
type Session struct {
	Token         string          `json:"-"`
	User          scheduling.User `json:"user"`
	ExpiresAt     time.Time       `json:"expires_at,omitempty"`
	EstablishedAt time.Time       `json:"established_at"`
}

// Manager owns the current session.
type Manager struct {
	clock  func() time.Time
	logger *logging.Logger

	mu        sync.RWMutex
	current   *Session
	onSignOut []func()
}

func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{clock: time.Now, logger: logger}
}

// Establish starts a session. JWT tokens are inspected, without verifying the
// signature, for exp and sub; opaque tokens are accepted as they are.
func (m *Manager) Establish(token string, user scheduling.User) (Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Session{}, ErrMissingToken
	}
	now := m.clock()
	s := Session{Token: token, User: user, EstablishedAt: now}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
			if !s.ExpiresAt.After(now) {
				return Session{}, ErrExpired
			}
		}
		if s.User.ID == "" {
			s.User.ID = claims.Subject
		}
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	m.logger.Info("session established", "user_id", s.User.ID)
	return s, nil
}

// SignOut clears the session and runs the sign-out hooks. Signing out with no
// session is a no-op.
func (m *Manager) SignOut() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	userID := m.current.User.ID
	m.current = nil
	hooks := append([]func(){}, m.onSignOut...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	m.logger.Info("session cleared", "user_id", userID)
}

// OnSignOut registers fn to run after every SignOut.
func (m *Manager) OnSignOut(fn func()) {
	m.mu.Lock()
	m.onSignOut = append(m.onSignOut, fn)
	m.mu.Unlock()
}

// Current returns the session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// State reports established or cleared.
func (m *Manager) State() State {
	if _, ok := m.Current(); ok {
		return StateEstablished
	}
	return StateCleared
}

// Token implements backend.TokenSource.
func (m *Manager) Token(context.Context) (string, error) {
	s, ok := m.Current()
	if !ok {
		return "", ErrNoSession
	}
	if !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(m.clock()) {
		return "", ErrExpired
	}
	return s.Token, nil
}

// Recipient returns the signed-in user's email for confirmations.
func (m *Manager) Recipient(context.Context) (string, string, bool) {
	s, ok := m.Current()
	if !ok || s.User.Email == "" {
		return "", "", false
	}
	return s.User.Email, s.User.Name, true
}

var _ backend.TokenSource = (*Manager)(nil)

// Established reports whether a session is active.
func (m *Manager) Established() bool {
	return m.State() == StateEstablished
}
