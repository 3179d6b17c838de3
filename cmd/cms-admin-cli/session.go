package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	redisstore "github.com/target/cms-admin/internal/adapters/redis"
	"github.com/target/cms-admin/internal/bootstrap"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
	"github.com/target/cms-admin/internal/ports"
	"github.com/target/cms-admin/internal/service"
	"github.com/target/cms-admin/internal/tokenstore"
)

const defaultTokenFile = "token"

// cliSession bundles a session manager with the resources behind it.
type cliSession struct {
	Manager *service.SessionManager
	Catalog *content.Catalog
	close   func()
}

func (s *cliSession) Close() {
	if s.close != nil {
		s.close()
	}
}

// openSession builds the token store and session manager for one command.
func (c *commandContext) openSession(ctx context.Context, tokenFile string) (*cliSession, error) {
	sessions, catalog, err := c.services()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := c.tokenStore(ctx, tokenFile)
	if err != nil {
		return nil, err
	}
	return &cliSession{Manager: sessions.New(store), Catalog: catalog, close: closeStore}, nil
}

func (c *commandContext) services() (*service.Sessions, *content.Catalog, error) {
	if c.API != nil {
		super := domainauth.Role(c.Config.Auth.SuperRole)
		sessions := service.NewSessions(service.SessionsOptions{API: c.API, Logger: c.Logger, Super: super})
		return sessions, content.NewCatalog(super, content.DefaultSections(super)), nil
	}
	svc, err := bootstrap.NewServices(&bootstrap.ServiceDeps{Config: &c.Config, Logger: c.Logger})
	if err != nil {
		return nil, nil, err
	}
	return svc.Sessions, svc.Catalog, nil
}

// tokenStore keeps the credential in a user-private file and, when Redis is
// enabled, mirrors it under this machine's device key.
func (c *commandContext) tokenStore(ctx context.Context, tokenFile string) (ports.TokenStore, func(), error) {
	if c.Store != nil {
		return c.Store, func() {}, nil
	}

	path := strings.TrimSpace(tokenFile)
	if path == "" {
		var err error
		if path, err = tokenstore.DefaultFilePath(defaultTokenFile); err != nil {
			return nil, nil, err
		}
	}
	backends := []ports.TokenBackend{tokenstore.NewFileBackend(path)}

	client, err := c.redisClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if client != nil {
		backends = append(backends, redisstore.NewTokenStore(redisstore.TokenStoreOptions{
			Client: client,
			Prefix: c.Config.Auth.RedisPrefix,
			TTL:    c.Config.Auth.CookieMaxAge,
			Device: redisstore.StaticDeviceKey(deviceKey()),
		}))
		closeFn = func() {
			if cerr := client.Close(); cerr != nil {
				c.Logger.Warn("redis close failed", "error", cerr)
			}
		}
	}

	return tokenstore.New(tokenstore.Options{
		Backends:     backends,
		Logger:       c.Logger,
		RepairOnRead: true,
	}), closeFn, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func (c *commandContext) redisClient(ctx context.Context) (redis.UniversalClient, error) {
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisConnConfig{Redis: c.Config.Redis, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// deviceKey names this installation in Redis.
func deviceKey() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "cli:" + host
}

// requireIdentity validates the stored credential and returns the identity.
func requireIdentity(ctx context.Context, sess *cliSession) (*domainauth.Identity, error) {
	snap := sess.Manager.Init(ctx)
	if snap.State != domainauth.StateAuthenticated || snap.Identity == nil {
		return nil, errNotSignedIn
	}
	return snap.Identity, nil
}
