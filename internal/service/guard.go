package service

import (
	"errors"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
)

// ErrNotSettled is returned when the in-page gate is asked to decide while validation is in flight.
var ErrNotSettled = errors.New("session validation has not settled")

// GuardOptions configures a Guard.
type GuardOptions struct {
	// ProtectedPrefix is the route tree behind the guard, e.g. /admin.
	ProtectedPrefix string
	LoginPath       string
	LogoutPath      string
	// HomePath is the safe default for authenticated users who lack a route's role.
	HomePath string
	Policy   domainauth.Policy
}

// Guard holds the two independent navigation gates.
type Guard struct {
	prefix string
	login  string
	logout string
	home   string
	policy domainauth.Policy
}

// NewGuard constructs a Guard, filling unset paths with the admin defaults.
func NewGuard(opts GuardOptions) *Guard {
	g := &Guard{
		prefix: opts.ProtectedPrefix,
		login:  opts.LoginPath,
		logout: opts.LogoutPath,
		home:   opts.HomePath,
		policy: opts.Policy,
	}
	if g.prefix == "" {
		g.prefix = "/admin"
	}
	if g.login == "" {
		g.login = g.prefix + "/login"
	}
	if g.logout == "" {
		g.logout = g.prefix + "/logout"
	}
	if g.home == "" {
		g.home = g.prefix
	}
	if g.policy.Super == "" {
		g.policy.Super = domainauth.RoleSuperAdmin
	}
	return g
}

// LoginPath is where unauthenticated users are sent.
func (g *Guard) LoginPath() string { return g.login }

// LogoutPath is the sign-out endpoint.
func (g *Guard) LogoutPath() string { return g.logout }

// HomePath is where under-privileged users are sent.
func (g *Guard) HomePath() string { return g.home }

// Protects reports whether path is behind the guard.
func (g *Guard) Protects(path string) bool { return domainauth.HasPathPrefix(path, g.prefix) }

// IsLoginPath reports whether path is the login entry point or below it.
func (g *Guard) IsLoginPath(path string) bool { return domainauth.HasPathPrefix(path, g.login) }

// PreRender is the edge gate. It only asks whether any credential exists;
// identity and role correctness belong to InPage.
func (g *Guard) PreRender(hasCredential bool, path string) domainauth.Outcome {
	if !g.Protects(path) || g.IsLoginPath(path) || hasCredential {
		return domainauth.Continue()
	}
	return domainauth.RedirectTo(g.login)
}

// InPage decides the final outcome once validation has settled.
// It refuses to decide while the snapshot is still loading.
func (g *Guard) InPage(snap Snapshot, path string) (domainauth.Outcome, error) {
	if snap.Loading() {
		return domainauth.Outcome{}, ErrNotSettled
	}
	onLogin := g.IsLoginPath(path)

	switch {
	case snap.Identity == nil && onLogin:
		return domainauth.Continue(), nil
	case snap.Identity == nil:
		return domainauth.RedirectTo(g.login), nil
	case onLogin:
		return domainauth.RedirectTo(g.home), nil
	case path == g.home:
		return domainauth.Continue(), nil
	case !g.policy.Allows(snap.Identity, path):
		return domainauth.RedirectTo(g.home), nil
	default:
		return domainauth.Continue(), nil
	}
}

// Allows reports whether identity may act under role.
func (g *Guard) Allows(identity *domainauth.Identity, role domainauth.Role) bool {
	return domainauth.Authorize(identity, role, g.policy.Super)
}

// OnError maps an authenticated call failure to a navigation outcome.
// An expired session sends the user to login unless they are already there.
// The boolean is false for errors the guard does not handle.
func (g *Guard) OnError(err error, path string) (domainauth.Outcome, bool) {
	if !errors.Is(err, domainauth.ErrSessionExpired) {
		return domainauth.Outcome{}, false
	}
	if g.IsLoginPath(path) {
		return domainauth.Continue(), true
	}
	return domainauth.RedirectTo(g.login), true
}
