package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	cmsadmin "github.com/target/cms-admin"
	"github.com/target/cms-admin/internal/adapters/backendapi"
	"github.com/target/cms-admin/internal/adapters/cookie"
	"github.com/target/cms-admin/internal/domain/content"
	httpassets "github.com/target/cms-admin/internal/http/assets"
	"github.com/target/cms-admin/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions *service.Sessions
	Guard    *service.Guard
	Catalog  *content.Catalog
	Backend  *backendapi.Client
	Cookie   cookie.Config
	// Optional secondary credential location.
	Redis       redis.UniversalClient
	RedisPrefix string
	// Optional overrides; default to the embedded frontend (or disk in dev mode).
	TemplateFS fs.FS
	StaticFS   fs.FS
	IsDev      bool
	Logger     *slog.Logger
	// Now stamps publication dates. Defaults to time.Now.
	Now func() time.Time
}

func (s RouterServices) validate() error {
	var errs []error
	if s.Sessions == nil {
		errs = append(errs, errors.New("sessions factory is required"))
	}
	if s.Guard == nil {
		errs = append(errs, errors.New("guard is required"))
	}
	if s.Catalog == nil {
		errs = append(errs, errors.New("catalog is required"))
	}
	if s.Backend == nil {
		errs = append(errs, errors.New("backend client is required"))
	}
	return errors.Join(errs...)
}

// NewRouter creates the HTTP handler for the admin console.
func NewRouter(services RouterServices) (http.Handler, error) {
	if err := services.validate(); err != nil {
		return nil, fmt.Errorf("router services: %w", err)
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS, staticFS, err := frontendFS(services)
	if err != nil {
		return nil, err
	}
	resolver, err := httpassets.NewAssetResolverFromFS(staticFS, "manifest.json")
	if err != nil {
		logger.Warn("asset manifest unavailable; using logical asset names", "error", err)
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS,
		Resolver:   resolver,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("template renderer: %w", err)
	}

	authHandlers := &AuthHandlers{Guard: services.Guard, Renderer: renderer, Logger: logger}
	adminHandlers := &AdminHandlers{
		Catalog:  services.Catalog,
		Guard:    services.Guard,
		Backend:  services.Backend,
		Renderer: renderer,
		Logger:   logger,
		Now:      services.Now,
	}

	session := Session(SessionConfig{
		Sessions:    services.Sessions,
		Cookie:      services.Cookie,
		Redis:       services.Redis,
		RedisPrefix: services.RedisPrefix,
		Logger:      logger,
	})
	cookieName := services.Cookie.Name
	guarded := func(h http.HandlerFunc) http.Handler {
		return Chain(h, PreRenderGate(services.Guard, cookieName), session, InPageGate(services.Guard))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /static/", staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	registerAuthRoutes(mux, authHandlers, routeWrappers{guarded: guarded, session: session})
	registerAdminRoutes(mux, adminHandlers, guarded)

	home := services.Guard.HomePath()
	mux.Handle("GET /{$}", http.RedirectHandler(home, http.StatusFound))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderErrorPage(w, r, errorPage{Renderer: renderer, Status: http.StatusNotFound, Message: "Page not found.", HomePath: home})
	}))

	return Chain(mux, Recover(logger), RequestID(), Logging(logger)), nil
}

type routeWrappers struct {
	guarded func(http.HandlerFunc) http.Handler
	session Middleware
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, wrap routeWrappers) {
	login := h.Guard.LoginPath()
	mux.Handle("GET "+login, wrap.guarded(h.LoginPage))
	mux.Handle("POST "+login, wrap.guarded(h.Login))
	mux.Handle("POST "+h.Guard.LogoutPath(), wrap.guarded(h.Logout))
	// Status answers JSON for anonymous callers too, so it skips both gates.
	mux.Handle("GET "+h.Guard.HomePath()+"/session", wrap.session(http.HandlerFunc(h.Status)))
}

func registerAdminRoutes(mux *http.ServeMux, h *AdminHandlers, guarded func(http.HandlerFunc) http.Handler) {
	home := h.Guard.HomePath()
	mux.Handle("GET "+home, guarded(h.Dashboard))
	mux.Handle("GET "+home+"/{$}", guarded(h.Dashboard))
	mux.Handle("GET "+home+"/{section}", guarded(h.Section))
	mux.Handle("POST "+home+"/{section}/{id}/delete", guarded(h.ItemDelete))
	mux.Handle("POST "+home+"/{section}/{id}/status", guarded(h.ItemStatus))
	mux.Handle("POST "+home+"/{section}/{id}/publish", guarded(h.ItemPublish))
	mux.Handle("POST "+home+"/{section}/{id}/roles", guarded(h.ItemRoles))
}

// frontendFS picks template and static filesystems: explicit overrides first,
// then disk in dev mode, then the embedded copies.
func frontendFS(services RouterServices) (fs.FS, fs.FS, error) {
	templateFS, staticFS := services.TemplateFS, services.StaticFS
	if services.IsDev {
		if templateFS == nil {
			templateFS = os.DirFS(TemplatePathFromRoot)
		}
		if staticFS == nil {
			staticFS = os.DirFS(StaticPathFromRoot)
		}
	}
	var err error
	if templateFS == nil {
		if templateFS, err = fs.Sub(cmsadmin.TemplateFS, TemplatePathFromRoot); err != nil {
			return nil, nil, fmt.Errorf("embedded templates: %w", err)
		}
	}
	if staticFS == nil {
		if staticFS, err = fs.Sub(cmsadmin.StaticFS, StaticPathFromRoot); err != nil {
			return nil, nil, fmt.Errorf("embedded static assets: %w", err)
		}
	}
	return templateFS, staticFS, nil
}

var hashedFilePattern = regexp.MustCompile(`\.[a-f0-9]{8}\.(?:js|css)(?:\.map)?$`)

// staticWithCacheHeaders wraps a static file handler to add appropriate cache headers.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hashedFilePattern.MatchString(r.URL.Path) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
