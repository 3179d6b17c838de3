// Package tokenstore persists the admin credential across page loads using an
// ordered list of storage backends behind a single interface.
package tokenstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/target/cms-admin/internal/ports"
)

var _ ports.TokenStore = (*Store)(nil)

// Store fans writes out to every backend and reads them in order.
// Backend failures are logged and swallowed: callers never check write success.
// Once cleared, a Store reports absent until the next Set, even when a
// backend failed to delete its copy.
type Store struct {
	backends []ports.TokenBackend
	logger   *slog.Logger
	repair   bool

	mu      sync.Mutex
	cleared bool
}

// Options groups dependencies for Store.
type Options struct {
	// Backends in read priority order. Nil entries are skipped.
	Backends []ports.TokenBackend
	Logger   *slog.Logger
	// RepairOnRead copies a credential found in a later backend into the
	// earlier backends that reported a clean miss.
	RepairOnRead bool
}

// New constructs a Store over the given backends.
func New(opts Options) *Store {
	backends := make([]ports.TokenBackend, 0, len(opts.Backends))
	for _, b := range opts.Backends {
		if b != nil {
			backends = append(backends, b)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backends: backends, logger: logger, repair: opts.RepairOnRead}
}

// Get returns the credential from the first backend that holds one.
func (s *Store) Get(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared {
		return "", false
	}
	var missed []ports.TokenBackend
	for _, b := range s.backends {
		v, ok, err := b.Load(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "token backend read failed", "backend", b.Name(), "error", err)
			continue
		}
		if ok && v != "" {
			if s.repair {
				s.repairMissed(ctx, missed, v)
			}
			return v, true
		}
		missed = append(missed, b)
	}
	return "", false
}

func (s *Store) repairMissed(ctx context.Context, missed []ports.TokenBackend, credential string) {
	for _, b := range missed {
		if err := b.Store(ctx, credential); err != nil {
			s.logger.WarnContext(ctx, "token backend repair failed", "backend", b.Name(), "error", err)
			continue
		}
		s.logger.DebugContext(ctx, "token backend repaired", "backend", b.Name())
	}
}

// Set writes credential to every backend independently.
func (s *Store) Set(ctx context.Context, credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = false
	for _, b := range s.backends {
		if err := b.Store(ctx, credential); err != nil {
			s.logger.WarnContext(ctx, "token backend write failed", "backend", b.Name(), "error", err)
		}
	}
}

// Clear removes the credential from every backend, present or not.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	for _, b := range s.backends {
		if err := b.Remove(ctx); err != nil {
			s.logger.WarnContext(ctx, "token backend delete failed", "backend", b.Name(), "error", err)
		}
	}
}

// Backends returns the configured backend names in read order.
func (s *Store) Backends() []string {
	names := make([]string, 0, len(s.backends))
	for _, b := range s.backends {
		names = append(names, b.Name())
	}
	return names
}
