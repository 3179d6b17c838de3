package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/target/cms-admin/internal/adapters/cookie"
	redisstore "github.com/target/cms-admin/internal/adapters/redis"
	"github.com/target/cms-admin/internal/ports"
	"github.com/target/cms-admin/internal/service"
	"github.com/target/cms-admin/internal/tokenstore"
)

const requestIDHeader = "X-Request-Id"

var errSessionMissing = errors.New("no session bound to request")

// Middleware wraps a handler.
type Middleware = func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestID tags every request with a correlation id. A well-formed incoming
// X-Request-Id is kept; anything else is replaced with a fresh UUID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// PreRenderGate is the edge gate. It runs before any session work and only
// checks that the credential cookie exists.
func PreRenderGate(guard *service.Guard, cookieName string) Middleware {
	if cookieName == "" {
		cookieName = cookie.DefaultName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, has := cookie.Read(r, cookieName)
			if Navigate(w, r, guard.PreRender(has, r.URL.Path)) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Sessions *service.Sessions
	Cookie   cookie.Config
	// Redis enables the secondary credential location when non-nil.
	Redis       redis.UniversalClient
	RedisPrefix string
	Logger      *slog.Logger
}

func (c SessionConfig) store(w http.ResponseWriter, r *http.Request) *tokenstore.Store {
	backends := []ports.TokenBackend{cookie.NewBackend(w, r, c.Cookie)}
	if c.Redis != nil {
		ttl := c.Cookie.MaxAge
		if ttl <= 0 {
			ttl = cookie.DefaultMaxAge
		}
		backends = append(backends, redisstore.NewTokenStore(redisstore.TokenStoreOptions{
			Client: c.Redis,
			Prefix: c.RedisPrefix,
			TTL:    ttl,
			Device: cookie.NewDevice(w, r, c.Cookie),
		}))
	}
	return tokenstore.New(tokenstore.Options{Backends: backends, Logger: c.Logger, RepairOnRead: true})
}

// Session binds a SessionManager to the request and blocks until its first
// validation has settled. Nothing downstream runs while validation is in flight.
func Session(cfg SessionConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mgr := cfg.Sessions.New(cfg.store(w, r))
			snap := mgr.Init(r.Context())
			cfg.Logger.DebugContext(r.Context(), "session initialized",
				slog.String("state", snap.State.String()),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), mgr)))
		})
	}
}

// InPageGate decides the final outcome from the settled session: login for
// anonymous users, home for users lacking the route's role.
func InPageGate(guard *service.Guard) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mgr, ok := SessionFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_missing", Err: errSessionMissing})
				return
			}
			outcome, err := guard.InPage(mgr.Snapshot(), r.URL.Path)
			if err != nil {
				w.Header().Set("Retry-After", "1")
				WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "session_loading", Err: err})
				return
			}
			if Navigate(w, r, outcome) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
