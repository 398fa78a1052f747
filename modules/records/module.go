package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/planner/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// BucketName is the kv-jetstream bucket used by the jetstream backend.
const BucketName = "planner"

// Config selects and configures the storage backend.
type Config struct {
	Backend     string
	SQLitePath  string
	SQLiteDebug bool
	RedisAddr   string
	RedisPrefix string
}

// Module owns the planner's tasks, tags and theme preference.
type Module struct {
	cfg      Config
	kv       *kvjetstream.PluginModule
	backend  KVStore
	store    *Store
	eventBus mono.EventBus
	logger   types.Logger
	now      func() time.Time
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ ImageReleaser              = (*Module)(nil)
)

// NewModule creates the records module.
func NewModule(cfg Config, logger types.Logger) *Module {
	if cfg.Backend == "" {
		cfg.Backend = BackendJetStream
	}
	return &Module{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "records"
}

// SetPlugin receives the KV plugin from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias == "kv" {
		kv, ok := plugin.(*kvjetstream.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for kv",
				"alias", alias,
				"expected", "*kvjetstream.PluginModule")
			return
		}
		m.kv = kv
		m.logger.Info("Received KV plugin", "alias", alias)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ImageReleasedV1.ToBase(),
	}
}

// RegisterServices registers the request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"add-task", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-task", json.Unmarshal, json.Marshal, m.addTask)
		}},
		{"toggle-task", func() error {
			return helper.RegisterTypedRequestReplyService(container, "toggle-task", json.Unmarshal, json.Marshal, m.toggleTask)
		}},
		{"update-task", func() error {
			return helper.RegisterTypedRequestReplyService(container, "update-task", json.Unmarshal, json.Marshal, m.updateTask)
		}},
		{"delete-task", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask)
		}},
		{"list-tasks", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks)
		}},
		{"today-deadlines", func() error {
			return helper.RegisterTypedRequestReplyService(container, "today-deadlines", json.Unmarshal, json.Marshal, m.todayDeadlines)
		}},
		{"calendar-month", func() error {
			return helper.RegisterTypedRequestReplyService(container, "calendar-month", json.Unmarshal, json.Marshal, m.calendarMonth)
		}},
		{"add-tag", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-tag", json.Unmarshal, json.Marshal, m.addTag)
		}},
		{"update-tag", func() error {
			return helper.RegisterTypedRequestReplyService(container, "update-tag", json.Unmarshal, json.Marshal, m.updateTag)
		}},
		{"delete-tag", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-tag", json.Unmarshal, json.Marshal, m.deleteTag)
		}},
		{"list-tags", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-tags", json.Unmarshal, json.Marshal, m.listTags)
		}},
		{"get-theme", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-theme", json.Unmarshal, json.Marshal, m.getTheme)
		}},
		{"set-theme", func() error {
			return helper.RegisterTypedRequestReplyService(container, "set-theme", json.Unmarshal, json.Marshal, m.setTheme)
		}},
	}

	names := make([]string, 0, len(registrations))
	for _, r := range registrations {
		if err := r.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", r.name, err)
		}
		names = append(names, r.name)
	}

	m.logger.Info("Registered services", "services", strings.Join(names, ", "))
	return nil
}

// Start opens the storage backend and loads the records.
func (m *Module) Start(ctx context.Context) error {
	backend, err := m.openBackend(ctx)
	if err != nil {
		return err
	}
	m.backend = backend

	if m.eventBus == nil {
		m.logger.Warn("EventBus not set, released images will not be cleaned up")
	}

	m.store = NewStore(backend, m, m.logger, WithClock(m.now))
	if err := m.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	m.logger.Info("Records module started", "backend", m.cfg.Backend)
	return nil
}

// Stop closes the storage backend if it holds a connection.
func (m *Module) Stop(_ context.Context) error {
	if closer, ok := m.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close %s backend: %w", m.cfg.Backend, err)
		}
	}
	m.logger.Info("Records module stopped")
	return nil
}

// Health reports backend connectivity.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{Healthy: false, Message: "record store not loaded"}
	}
	if p, ok := m.backend.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("%s backend ping failed: %v", m.cfg.Backend, err),
			}
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": m.cfg.Backend,
			"tasks":   len(m.store.Tasks()),
			"tags":    len(m.store.Tags()),
		},
	}
}

// Store returns the record store. It is nil before Start.
func (m *Module) Store() *Store {
	return m.store
}

// ReleaseImage publishes an ImageReleased event. Failures are logged only.
func (m *Module) ReleaseImage(_ context.Context, imageID, ownerKind, ownerID string) {
	if m.eventBus == nil {
		m.logger.Warn("Image release dropped, no event bus", "image_id", imageID)
		return
	}
	event := events.ImageReleasedEvent{
		ImageID:    imageID,
		OwnerKind:  ownerKind,
		OwnerID:    ownerID,
		ReleasedAt: m.now(),
	}
	if err := events.ImageReleasedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ImageReleased event",
			"image_id", imageID,
			"owner", ownerKind+"/"+ownerID,
			"error", err)
	}
}

func (m *Module) openBackend(ctx context.Context) (KVStore, error) {
	switch m.cfg.Backend {
	case BackendJetStream:
		if m.kv == nil {
			return nil, fmt.Errorf("required plugin 'kv' not registered")
		}
		bucket := m.kv.Bucket(BucketName)
		if bucket == nil {
			return nil, fmt.Errorf("bucket '%s' not found in KV plugin", BucketName)
		}
		return NewJetStreamKV(bucket), nil
	case BackendSQLite:
		m.logger.Info("Opening SQLite backend", "path", m.cfg.SQLitePath)
		return OpenSQLiteKV(m.cfg.SQLitePath, m.cfg.SQLiteDebug)
	case BackendRedis:
		m.logger.Info("Connecting to Redis backend", "addr", m.cfg.RedisAddr)
		return OpenRedisKV(ctx, m.cfg.RedisAddr, m.cfg.RedisPrefix)
	}
	return nil, fmt.Errorf("unknown storage backend %q", m.cfg.Backend)
}
