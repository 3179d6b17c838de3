package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/tokenstore; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
)

// TokenBackend is one storage location for the credential.
// Implementations report failures; the token store decides what to do with them.
type TokenBackend interface {
	// Name identifies the backend in logs.
	Name() string
	// Load returns the stored credential and whether one was found.
	Load(ctx context.Context) (string, bool, error)
	// Store replaces the stored credential.
	Store(ctx context.Context, credential string) error
	// Remove deletes the credential. Removing an absent credential is not an error.
	Remove(ctx context.Context) error
}

// TokenStore is the single source of truth for the credential.
// Writes are best-effort and never fail from the caller's point of view.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, credential string)
	Clear(ctx context.Context)
}

// LoginInput carries the login form values.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string              `json:"token"`
	User  domainauth.Identity `json:"user"`
}

// SessionAPI is the slice of the external backend the session manager talks to.
type SessionAPI interface {
	// Login issues an unauthenticated credential exchange.
	Login(ctx context.Context, in LoginInput) (LoginResult, error)
	// Me validates credential and returns the current identity.
	Me(ctx context.Context, credential string) (domainauth.Identity, error)
	// Logout asks the backend to invalidate credential.
	Logout(ctx context.Context, credential string) error
}
