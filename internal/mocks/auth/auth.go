package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/ports"
)

// Ensure compile-time conformance to ports.
var _ ports.SessionAPI = (*FakeBackend)(nil)

// ErrInvalidCredentials mirrors the backend's login rejection.
type invalidCredentialsError struct{}

func (invalidCredentialsError) Error() string       { return "Invalid credentials" }
func (invalidCredentialsError) UserMessage() string { return "Invalid credentials" }

var ErrInvalidCredentials error = invalidCredentialsError{}

// Account is a user the fake backend accepts.
type Account struct {
	Password string
	Identity domainauth.Identity
}

// FakeBackend is a stateful stand-in for the CMS backend's session endpoints.
// It issues deterministic credentials and remembers which are still valid.
// Func overrides take precedence over the built-in behaviour.
type FakeBackend struct {
	LoginFunc  func(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error)
	MeFunc     func(ctx context.Context, credential string) (domainauth.Identity, error)
	LogoutFunc func(ctx context.Context, credential string) error

	mu       sync.Mutex
	accounts map[string]Account
	tokens   map[string]string
	issued   int
	calls    map[string]int
}

// NewFakeBackend creates a FakeBackend that knows the given accounts, keyed by email.
func NewFakeBackend(accounts ...Account) *FakeBackend {
	f := &FakeBackend{
		accounts: make(map[string]Account, len(accounts)),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
	}
	for _, a := range accounts {
		f.accounts[a.Identity.Email] = a
	}
	return f
}

// Grant makes credential valid for the account with email without a login round trip.
func (f *FakeBackend) Grant(credential, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[credential] = email
}

// Valid reports whether credential is still accepted.
func (f *FakeBackend) Valid(credential string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[credential]
	return ok
}

// SetRoles replaces the roles of the account with id, as the backend's role
// endpoint would. It reports whether the account exists.
func (f *FakeBackend) SetRoles(id int64, roles []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, a := range f.accounts {
		if a.Identity.ID == id {
			a.Identity.Roles = append([]string(nil), roles...)
			f.accounts[email] = a
			return true
		}
	}
	return false
}

// Calls returns how many times method was invoked.
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeBackend) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *FakeBackend) Login(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	f.record("Login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, in)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[in.Email]
	if !ok || acct.Password != in.Password {
		return ports.LoginResult{}, ErrInvalidCredentials
	}
	f.issued++
	tok := fmt.Sprintf("token-%d", f.issued)
	f.tokens[tok] = in.Email
	return ports.LoginResult{Token: tok, User: acct.Identity}, nil
}

func (f *FakeBackend) Me(ctx context.Context, credential string) (domainauth.Identity, error) {
	f.record("Me")
	if f.MeFunc != nil {
		return f.MeFunc(ctx, credential)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.tokens[credential]
	if !ok {
		return domainauth.Identity{}, domainauth.ErrSessionExpired
	}
	return f.accounts[email].Identity, nil
}

func (f *FakeBackend) Logout(ctx context.Context, credential string) error {
	f.record("Logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, credential)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[credential]; !ok {
		return domainauth.ErrSessionExpired
	}
	delete(f.tokens, credential)
	return nil
}
