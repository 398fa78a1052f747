package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/planner/domain/planner"
	"github.com/example/planner/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

// BucketName is the fs-jetstream bucket holding image payloads.
const BucketName = "images"

var errNotStarted = errors.New("image module not started")

// Module implements the image store on the fs-jetstream plugin and cleans
// up images released by the records module.
type Module struct {
	storage *fsjetstream.PluginModule
	bucket  fsjetstream.FileStoragePort
	service *Service
	maxSize int64
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new image module.
func NewModule(maxSize int64, logger types.Logger) *Module {
	return &Module{
		maxSize: maxSize,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "images"
}

// SetPlugin receives the storage plugin from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias == "storage" {
		storage, ok := plugin.(*fsjetstream.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for storage",
				"alias", alias,
				"expected", "*fsjetstream.PluginModule")
			return
		}
		m.storage = storage
		m.logger.Info("Received storage plugin", "alias", alias)
	}
}

// RegisterEventConsumers subscribes to image release events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.ImageReleasedV1, m.handleImageReleased, m); err != nil {
		return fmt.Errorf("failed to register ImageReleased consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", "ImageReleased")
	return nil
}

// Start initializes the module and its service.
func (m *Module) Start(ctx context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}

	m.bucket = m.storage.Bucket(BucketName)
	if m.bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", BucketName)
	}

	service, err := NewService(m.bucket, m.logger, m.maxSize)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	m.service = service

	m.logger.Info("Image module started", "max_size", m.maxSize)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Image module stopped")
	return nil
}

// Health reports whether the bucket is reachable.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.bucket == nil {
		return mono.HealthStatus{Healthy: false, Message: "bucket not initialized"}
	}
	objects, err := m.bucket.List()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to list bucket: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"bucket": BucketName,
			"images": len(objects),
		},
	}
}

// Service returns the image service instance.
func (m *Module) Service() *Service {
	return m.service
}

// Upload stores data under a generated key.
func (m *Module) Upload(ctx context.Context, data []byte, contentType string) (*ImageInfo, error) {
	if m.service == nil {
		return nil, errNotStarted
	}
	return m.service.Upload(ctx, data, contentType)
}

// Get returns the stored image, or false when it is absent or unreadable.
func (m *Module) Get(ctx context.Context, id string) (*Image, bool) {
	if m.service == nil {
		return nil, false
	}
	return m.service.Get(ctx, id)
}

// Delete removes an image.
func (m *Module) Delete(ctx context.Context, id string) error {
	if m.service == nil {
		return errNotStarted
	}
	return m.service.Delete(ctx, id)
}

// Resolve returns the image source to display for ref.
func (m *Module) Resolve(ctx context.Context, ref planner.ImageRef) string {
	if m.service == nil {
		return ref.URL
	}
	return m.service.Resolve(ctx, ref)
}

// handleImageReleased deletes a released image. Cleanup is best-effort:
// failures are logged with the image id and not redelivered.
func (m *Module) handleImageReleased(ctx context.Context, event events.ImageReleasedEvent, _ *mono.Msg) error {
	if m.service == nil {
		m.logger.Error("Image release received before start", "image_id", event.ImageID)
		return nil
	}
	if err := m.service.Delete(ctx, event.ImageID); err != nil {
		m.logger.Error("Failed to delete released image",
			"image_id", event.ImageID,
			"owner", event.OwnerKind+"/"+event.OwnerID,
			"error", err)
		return nil
	}
	m.logger.Debug("Released image cleaned up", "image_id", event.ImageID, "owner_id", event.OwnerID)
	return nil
}
