package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/cms-admin/config"
	"github.com/target/cms-admin/internal/adapters/backendapi"
	"github.com/target/cms-admin/internal/adapters/cookie"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
	httpx "github.com/target/cms-admin/internal/http"
	"github.com/target/cms-admin/internal/service"
)

// ServiceDeps contains dependencies needed to build the application services.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the long-lived application services.
type ServiceContainer struct {
	Backend  *backendapi.Client
	Sessions *service.Sessions
	Catalog  *content.Catalog
	Guard    *service.Guard
}

// NewServices builds the backend client, session factory, section catalog and guard.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies require a config")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := backendapi.NewClient(backendapi.Config{
		BaseURL:     cfg.Backend.BaseURL,
		Timeout:     cfg.Backend.Timeout,
		MessageExpr: cfg.Backend.MessageExpr,
		LoginPath:   cfg.Backend.LoginPath,
		MePath:      cfg.Backend.MePath,
		LogoutPath:  cfg.Backend.LogoutPath,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("backend client: %w", err)
	}

	super := domainauth.Role(cfg.Auth.SuperRole)
	catalog := content.NewCatalog(super, content.DefaultSections(super)).Mount(cfg.Auth.ProtectedPrefix)

	return ServiceContainer{
		Backend: client,
		Sessions: service.NewSessions(service.SessionsOptions{
			API:    client,
			Logger: logger.With("component", "sessions"),
			Super:  super,
		}),
		Catalog: catalog,
		Guard: service.NewGuard(service.GuardOptions{
			ProtectedPrefix: cfg.Auth.ProtectedPrefix,
			Policy:          catalog.Policy(),
		}),
	}, nil
}

// RouterServices adapts the container to the HTTP layer.
func (c ServiceContainer) RouterServices(deps *ServiceDeps) httpx.RouterServices {
	cfg := deps.Config
	return httpx.RouterServices{
		Sessions: c.Sessions,
		Guard:    c.Guard,
		Catalog:  c.Catalog,
		Backend:  c.Backend,
		Cookie: cookie.Config{
			Name:   cfg.Auth.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			MaxAge: cfg.Auth.CookieMaxAge,
		},
		Redis:       deps.RedisClient,
		RedisPrefix: cfg.Auth.RedisPrefix,
		IsDev:       cfg.IsDev,
		Logger:      deps.Logger,
	}
}
