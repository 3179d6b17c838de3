package tokenstore

import (
	"context"
	"sync"

	"github.com/target/cms-admin/internal/ports"
)

var _ ports.TokenBackend = (*MemoryBackend)(nil)

// MemoryBackend keeps the credential in process memory.
// It survives nothing but the process; useful for tests and one-shot CLI runs.
type MemoryBackend struct {
	name  string
	mu    sync.Mutex
	value string
	set   bool
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	if name == "" {
		name = "memory"
	}
	return &MemoryBackend{name: name}
}

func (m *MemoryBackend) Name() string { return m.name }

func (m *MemoryBackend) Load(context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.set, nil
}

func (m *MemoryBackend) Store(_ context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.set = credential, true
	return nil
}

func (m *MemoryBackend) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.set = "", false
	return nil
}
