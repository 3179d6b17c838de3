// Package cookie provides the request-scoped cookie location for the admin credential.
// It is the location the pre-render gate reads, so its name and attributes are shared with it.
package cookie

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/target/cms-admin/internal/ports"
)

const (
	// DefaultName is the cookie name for the admin credential.
	DefaultName = "admin_token"
	// DefaultMaxAge is the persistence horizon of the credential cookie.
	DefaultMaxAge = 7 * 24 * time.Hour
)

var _ ports.TokenBackend = (*Backend)(nil)

// Config controls cookie attributes.
type Config struct {
	Name   string
	Domain string
	MaxAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	return c
}

// Backend reads the credential cookie from the incoming request and writes
// Set-Cookie headers on the response. Writes are mirrored locally so later
// reads within the same request observe them.
type Backend struct {
	cfg Config
	w   http.ResponseWriter
	r   *http.Request

	mu      sync.Mutex
	written bool
	value   string
}

// NewBackend binds a cookie backend to one request/response pair.
func NewBackend(w http.ResponseWriter, r *http.Request, cfg Config) *Backend {
	return &Backend{cfg: cfg.withDefaults(), w: w, r: r}
}

func (b *Backend) Name() string { return "cookie" }

func (b *Backend) Load(context.Context) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.written {
		return b.value, b.value != "", nil
	}
	v, ok := Read(b.r, b.cfg.Name)
	return v, ok, nil
}

func (b *Backend) Store(_ context.Context, credential string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	http.SetCookie(b.w, &http.Cookie{
		Name:     b.cfg.Name,
		Value:    credential,
		Path:     "/",
		Domain:   b.cfg.Domain,
		HttpOnly: true,
		Secure:   IsSecure(b.r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(b.cfg.MaxAge.Seconds()),
	})
	b.written, b.value = true, credential
	return nil
}

func (b *Backend) Remove(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	Expire(b.w, b.r, b.cfg.Name, b.cfg.Domain)
	b.written, b.value = true, ""
	return nil
}

// Read returns a non-empty cookie value from the request.
func Read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Expire clears a cookie by setting it to expire immediately.
// It mirrors the attributes used when setting the cookie so browsers match it.
func Expire(w http.ResponseWriter, r *http.Request, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   IsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// IsSecure reports whether the request arrived over TLS, directly or via a proxy.
func IsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
