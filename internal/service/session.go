package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/ports"
	"golang.org/x/sync/singleflight"
)

// DefaultLoginMessage is shown when a login failure carries no backend message.
const DefaultLoginMessage = "Invalid credentials. Please try again."

// LoginError is a login failure with a message fit for display.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }

// displayMessage extracts a user-facing message from err, if it carries one.
func displayMessage(err error) (string, bool) {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage(), true
	}
	return "", false
}

// SessionsOptions groups dependencies for Sessions.
type SessionsOptions struct {
	API    ports.SessionAPI
	Logger *slog.Logger
	// Super is the privileged role that implies every other role.
	Super domainauth.Role
}

// Sessions is the application-wide session factory. It is built once at
// startup and hands out one SessionManager per application load.
// Validations of the same credential that overlap in time share one backend call.
type Sessions struct {
	api    ports.SessionAPI
	logger *slog.Logger
	super  domainauth.Role
	flight singleflight.Group
}

// NewSessions constructs a Sessions factory.
func NewSessions(opts SessionsOptions) *Sessions {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	super := opts.Super
	if super == "" {
		super = domainauth.RoleSuperAdmin
	}
	return &Sessions{api: opts.API, logger: logger, super: super}
}

// Super returns the privileged role.
func (s *Sessions) Super() domainauth.Role { return s.super }

// New binds a SessionManager to store. The manager starts in StateInitializing.
func (s *Sessions) New(store ports.TokenStore) *SessionManager {
	return &SessionManager{
		sessions: s,
		store:    store,
		state:    domainauth.StateInitializing,
	}
}

func (s *Sessions) validate(ctx context.Context, credential string) (domainauth.Identity, error) {
	// The shared call must not be cut short by whichever caller happened to start it.
	detached := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(credential, func() (any, error) {
		return s.api.Me(detached, credential)
	})
	if err != nil {
		return domainauth.Identity{}, err
	}
	return v.(domainauth.Identity), nil
}

// Snapshot is a consistent view of a SessionManager.
type Snapshot struct {
	State    domainauth.State
	Identity *domainauth.Identity
}

// Loading reports whether validation is still in flight.
func (s Snapshot) Loading() bool { return !s.State.Terminal() }

// SessionManager owns the identity lifecycle for one application load.
//
// Every change to the stored credential bumps a generation counter under mu.
// Results of backend calls started under an older generation are discarded,
// so the identity held here always belongs to the credential in the store.
type SessionManager struct {
	sessions *Sessions
	store    ports.TokenStore

	initOnce sync.Once

	mu       sync.Mutex
	state    domainauth.State
	identity *domainauth.Identity
	gen      uint64
	pending  int
}

// Init performs the first validation. Later calls return the current snapshot.
func (m *SessionManager) Init(ctx context.Context) Snapshot {
	m.initOnce.Do(func() { m.CheckAuth(ctx) })
	return m.Snapshot()
}

// Snapshot returns the current state and a copy of the identity.
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, Identity: cloneIdentity(m.identity)}
}

// State returns the current session state.
func (m *SessionManager) State() domainauth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the current identity, or nil.
func (m *SessionManager) Identity() *domainauth.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneIdentity(m.identity)
}

// Authorize reports whether the current identity may act under role.
func (m *SessionManager) Authorize(role domainauth.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domainauth.Authorize(m.identity, role, m.sessions.super)
}

// CheckAuth validates the stored credential against the backend.
// Failures are reflected in state, never returned.
func (m *SessionManager) CheckAuth(ctx context.Context) {
	for !m.checkOnce(ctx) {
	}
}

// checkOnce runs one validation round. It returns false when the result was
// stale and nothing else is left to settle the state, so the caller must
// validate whatever credential is current now.
func (m *SessionManager) checkOnce(ctx context.Context) bool {
	m.mu.Lock()
	credential, ok := m.store.Get(ctx)
	if !ok {
		m.identity = nil
		m.state = domainauth.StateUnauthenticated
		m.mu.Unlock()
		return true
	}
	gen := m.gen
	m.state = domainauth.StateValidating
	m.pending++
	m.mu.Unlock()

	identity, err := m.sessions.validate(ctx, credential)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if !m.currentLocked(ctx, gen, credential) {
		m.sessions.logger.DebugContext(ctx, "discarding stale session validation", "error", err)
		return m.pending > 0 || m.state != domainauth.StateValidating
	}
	if err != nil {
		m.sessions.logger.InfoContext(ctx, "session validation failed", "error", err)
		m.dropLocked(ctx)
		return true
	}
	m.identity = &identity
	m.state = domainauth.StateAuthenticated
	return true
}

// currentLocked reports whether credential, read at generation gen, is still
// the stored one. mu must be held.
func (m *SessionManager) currentLocked(ctx context.Context, gen uint64, credential string) bool {
	if gen != m.gen {
		return false
	}
	current, _ := m.store.Get(ctx)
	return current == credential
}

// Login exchanges email and password for a credential. On failure the store
// and state are left untouched and a *LoginError is returned.
func (m *SessionManager) Login(ctx context.Context, in ports.LoginInput) error {
	res, err := m.sessions.api.Login(ctx, in)
	if err != nil {
		msg, ok := displayMessage(err)
		if !ok {
			msg = DefaultLoginMessage
		}
		m.sessions.logger.InfoContext(ctx, "login rejected", "email", in.Email, "error", err)
		return &LoginError{Message: msg, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Set(ctx, res.Token)
	m.gen++
	user := res.User
	m.identity = &user
	m.state = domainauth.StateAuthenticated
	return nil
}

// Logout ends the session. The backend call is best-effort; local state is
// always cleared and the caller is always sent to loginPath.
func (m *SessionManager) Logout(ctx context.Context, loginPath string) domainauth.Outcome {
	m.mu.Lock()
	credential, ok := m.store.Get(ctx)
	m.mu.Unlock()

	if ok {
		if err := m.sessions.api.Logout(ctx, credential); err != nil {
			m.sessions.logger.WarnContext(ctx, "backend logout failed", "error", err)
		}
	}

	m.mu.Lock()
	m.dropLocked(ctx)
	m.mu.Unlock()
	return domainauth.RedirectTo(loginPath)
}

// Call runs an authenticated backend operation with the current credential.
// fn receives an empty credential when none is stored. If fn reports an
// expired session, the credential and identity are dropped before the error
// is returned.
func (m *SessionManager) Call(ctx context.Context, fn func(ctx context.Context, credential string) error) error {
	m.mu.Lock()
	credential, _ := m.store.Get(ctx)
	gen := m.gen
	m.mu.Unlock()

	err := fn(ctx, credential)
	if err == nil || !errors.Is(err, domainauth.ErrSessionExpired) {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentLocked(ctx, gen, credential) {
		m.dropLocked(ctx)
	}
	return fmt.Errorf("authenticated call: %w", err)
}

// dropLocked clears the credential and identity. mu must be held.
func (m *SessionManager) dropLocked(ctx context.Context) {
	m.store.Clear(ctx)
	m.gen++
	m.identity = nil
	m.state = domainauth.StateUnauthenticated
}

func cloneIdentity(id *domainauth.Identity) *domainauth.Identity {
	if id == nil {
		return nil
	}
	c := *id
	c.Roles = append([]string(nil), id.Roles...)
	return &c
}
