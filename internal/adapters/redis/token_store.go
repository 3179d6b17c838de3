package redis

// Package redis provides Redis-based adapters for the admin console.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/cms-admin/internal/ports"
)

const defaultPrefix = "admin_token:"

// DeviceKey identifies the browser (or CLI installation) a credential belongs to.
type DeviceKey interface {
	// Lookup returns the existing key without creating one.
	Lookup() (string, bool)
	// Ensure returns the existing key or issues a new one.
	Ensure() (string, error)
}

// forgetter is implemented by device keys that can be dropped when their
// entry could not be deleted, orphaning it until the TTL runs out.
type forgetter interface {
	Forget()
}

// StaticDeviceKey is a fixed key, used where there is no browser to tag.
type StaticDeviceKey string

func (k StaticDeviceKey) Lookup() (string, bool)  { return string(k), k != "" }
func (k StaticDeviceKey) Ensure() (string, error) { return string(k), nil }

var _ ports.TokenBackend = (*TokenStore)(nil)

// TokenStore is the secondary credential location, keyed per device.
// Entries expire with the same horizon as the credential cookie.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	device DeviceKey
}

// TokenStoreOptions groups dependencies for TokenStore.
type TokenStoreOptions struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
	Device DeviceKey
}

// NewTokenStore creates a Redis-backed credential location.
func NewTokenStore(opts TokenStoreOptions) *TokenStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &TokenStore{
		client: opts.Client,
		prefix: prefix,
		ttl:    opts.TTL,
		device: opts.Device,
	}
}

func (s *TokenStore) Name() string { return "redis" }

func (s *TokenStore) Load(ctx context.Context) (string, bool, error) {
	id, ok := s.device.Lookup()
	if !ok {
		return "", false, nil
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return data, data != "", nil
}

func (s *TokenStore) Store(ctx context.Context, credential string) error {
	id, err := s.device.Ensure()
	if err != nil {
		return fmt.Errorf("device key: %w", err)
	}
	if id == "" {
		return errors.New("device key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+id, credential, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *TokenStore) Remove(ctx context.Context) error {
	id, ok := s.device.Lookup()
	if !ok {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		if f, ok := s.device.(forgetter); ok {
			f.Forget()
		}
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Keys lists stored credential keys (without values), for operator tooling.
// In cluster mode every master is scanned.
func (s *TokenStore) Keys(ctx context.Context, limit int) ([]string, error) {
	cc, ok := s.client.(*redis.ClusterClient)
	if !ok {
		return s.scanKeys(ctx, s.client, limit)
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		batch, err := s.scanKeys(ctx, node, limit)
		if err != nil {
			return err
		}
		mu.Lock()
		keys = append(keys, batch...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (s *TokenStore) scanKeys(ctx context.Context, c redis.Cmdable, limit int) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, batch...)
		if limit > 0 && len(keys) >= limit {
			return keys[:limit], nil
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
