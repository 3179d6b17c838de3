package auth

// Package auth contains domain-level types for authentication, sessions and
// role authorization. It is pure and free of framework/adapter concerns.

import (
	"errors"
	"slices"
	"strings"
)

// Role is a capability label carried by an Identity.
// The set is open; the constants below are the labels the admin console knows about.
type Role string

const (
	RoleNews         Role = "news"
	RoleProjects     Role = "projects"
	RoleGallery      Role = "gallery"
	RoleTestimonials Role = "testimonials"
	RoleContacts     Role = "contacts"

	// RoleSuperAdmin is the default privileged label. Holding it satisfies every role check.
	RoleSuperAdmin Role = "super_admin"
)

// Identity is the authenticated user's profile as returned by the backend's
// session-validation endpoint. It is never persisted by this service.
type Identity struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

// Has reports whether the identity carries the exact role label.
func (i *Identity) Has(role Role) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, string(role))
}

// Authorize reports whether identity may act under the required role.
// A nil identity is never authorized. The super role implies every other role.
func Authorize(identity *Identity, required, super Role) bool {
	if identity == nil {
		return false
	}
	if identity.Has(required) {
		return true
	}
	return super != "" && identity.Has(super)
}

// State is the derived session state of a SessionManager.
type State int

const (
	StateInitializing State = iota
	StateValidating
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Terminal reports whether validation has settled.
func (s State) Terminal() bool {
	return s == StateAuthenticated || s == StateUnauthenticated
}

var (
	// ErrSessionExpired is returned by any authenticated backend call answered with 401.
	ErrSessionExpired = errors.New("unauthorized - please login again")

	// ErrNoCredential indicates the token store holds no credential. It is not a failure.
	ErrNoCredential = errors.New("no credential")
)

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeRedirect
)

// Outcome is the result of a navigation decision. The HTTP layer performs the
// actual navigation; the core only describes it.
type Outcome struct {
	Kind     OutcomeKind
	Location string
}

// Continue lets the request proceed.
func Continue() Outcome { return Outcome{Kind: OutcomeContinue} }

// RedirectTo asks the router to navigate to path.
func RedirectTo(path string) Outcome { return Outcome{Kind: OutcomeRedirect, Location: path} }

// IsRedirect reports whether the outcome navigates away.
func (o Outcome) IsRedirect() bool { return o.Kind == OutcomeRedirect }

// RouteRole binds a path prefix to the role required to view it.
type RouteRole struct {
	Prefix string
	Role   Role
}

// Policy resolves the role a path requires.
type Policy struct {
	Routes []RouteRole
	Super  Role
}

// RequiredRole returns the role for the longest matching prefix.
// Prefixes match whole path segments only, so /admin/newsletter does not match /admin/news.
func (p Policy) RequiredRole(path string) (Role, bool) {
	var (
		best    RouteRole
		matched bool
	)
	for _, rr := range p.Routes {
		if !HasPathPrefix(path, rr.Prefix) {
			continue
		}
		if !matched || len(rr.Prefix) > len(best.Prefix) {
			best = rr
			matched = true
		}
	}
	return best.Role, matched
}

// Allows reports whether identity may view path under this policy.
// Paths without a mapped role only require an identity.
func (p Policy) Allows(identity *Identity, path string) bool {
	if identity == nil {
		return false
	}
	role, ok := p.RequiredRole(path)
	if !ok {
		return true
	}
	return Authorize(identity, role, p.Super)
}

// HasPathPrefix reports whether path is prefix or lies below it, segment-wise.
func HasPathPrefix(path, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}
