package config

import (
	"errors"
	"strings"
	"time"
)

// AuthConfig groups the credential cookie and role settings.
type AuthConfig struct {
	// CookieName is the credential cookie read by the pre-render gate.
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"admin_token"`

	// CookieMaxAge is the persistence horizon of the credential, shared by the
	// cookie and the Redis location.
	CookieMaxAge time.Duration `env:"AUTH_COOKIE_MAX_AGE" envDefault:"168h"`

	// SuperRole implies every other role.
	SuperRole string `env:"AUTH_SUPER_ROLE" envDefault:"super_admin"`

	// ProtectedPrefix is the route tree behind the guard; login lives at <prefix>/login.
	ProtectedPrefix string `env:"AUTH_PROTECTED_PREFIX" envDefault:"/admin"`

	// RedisPrefix namespaces credential keys in Redis.
	RedisPrefix string `env:"AUTH_REDIS_PREFIX" envDefault:"admin_token:"`
}

// Sanitize normalises auth values.
func (a *AuthConfig) Sanitize() {
	a.CookieName = strings.TrimSpace(a.CookieName)
	a.SuperRole = strings.TrimSpace(a.SuperRole)
	a.ProtectedPrefix = strings.TrimSpace(a.ProtectedPrefix)
	if a.ProtectedPrefix != "" && !strings.HasPrefix(a.ProtectedPrefix, "/") {
		a.ProtectedPrefix = "/" + a.ProtectedPrefix
	}
	if len(a.ProtectedPrefix) > 1 {
		a.ProtectedPrefix = strings.TrimSuffix(a.ProtectedPrefix, "/")
	}
	if a.CookieMaxAge < 0 {
		a.CookieMaxAge = 0
	}
}

// Validate checks auth values.
func (a *AuthConfig) Validate() error {
	var errs []error
	if a.CookieName == "" || strings.ContainsAny(a.CookieName, " ;,=") {
		errs = append(errs, errors.New("AUTH_COOKIE_NAME must be a non-empty cookie token"))
	}
	if a.SuperRole == "" {
		errs = append(errs, errors.New("AUTH_SUPER_ROLE is required"))
	}
	if a.ProtectedPrefix == "" || a.ProtectedPrefix == "/" {
		errs = append(errs, errors.New("AUTH_PROTECTED_PREFIX must name a route below /"))
	}
	return errors.Join(errs...)
}
