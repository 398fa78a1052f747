package records

import (
	"context"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

// mockKVStore implements KVStore in memory and records writes.
type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes []string
	setErr error
	getErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.writes = append(m.writes, key)
	return nil
}

func (m *mockKVStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

func (m *mockKVStore) raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

func (m *mockKVStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

type releasedImage struct {
	ImageID   string
	OwnerKind string
	OwnerID   string
}

// mockReleaser records released images.
type mockReleaser struct {
	mu       sync.Mutex
	released []releasedImage
}

func (m *mockReleaser) ReleaseImage(_ context.Context, imageID, ownerKind, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, releasedImage{imageID, ownerKind, ownerID})
}

func (m *mockReleaser) all() []releasedImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]releasedImage(nil), m.released...)
}
