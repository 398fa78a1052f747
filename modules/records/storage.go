package records

import (
	"context"
	"errors"
	"fmt"

	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// Storage keys. The legacy keys are only ever read.
const (
	KeyTasks       = "planner-tasks"
	KeyTags        = "planner-tags"
	KeyTheme       = "planner-theme"
	KeyLegacyTasks = "game-planner-tasks"
	KeyLegacyTags  = "game-planner-games"
)

// Backend names accepted by the records module.
const (
	BackendJetStream = "jetstream"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
)

// KVStore is the durable key-value port the record store persists through.
// Get returns ErrKeyNotFound for a key that was never written.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// pinger is implemented by backends that can report connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// JetStreamKV implements KVStore on a kv-jetstream plugin bucket.
type JetStreamKV struct {
	bucket kvjetstream.KVStoragePort
}

// NewJetStreamKV wraps a kv-jetstream bucket.
func NewJetStreamKV(bucket kvjetstream.KVStoragePort) *JetStreamKV {
	return &JetStreamKV{bucket: bucket}
}

// Get reads a key.
func (s *JetStreamKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := s.bucket.Get(key)
	if err != nil {
		if errors.Is(err, kvjetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	// The bucket reports a missing key as (nil, nil).
	if data == nil {
		return nil, ErrKeyNotFound
	}
	return data, nil
}

// Set writes a key with no expiry.
func (s *JetStreamKV) Set(_ context.Context, key string, value []byte) error {
	if err := s.bucket.Set(key, value, 0); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
