package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/sync/singleflight"
)

const (
	// URLPrefix is the local handle prefix for stored images.
	URLPrefix = "/api/v1/images/"

	idPrefix  = "img_"
	maxIDLen  = 64
	idLength  = 16
	idCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// LocalURL returns the handle under which a stored image is served.
func LocalURL(id string) string {
	return URLPrefix + id
}

// validateImageID accepts keys made of letters, digits, '_' and '-'.
func validateImageID(id string) error {
	if id == "" || len(id) > maxIDLen {
		return fmt.Errorf("%w: %q", ErrInvalidImageID, id)
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidImageID, id)
		}
	}
	return nil
}

// detectContentType sniffs the payload and rejects anything that is not an
// image. A declared type is kept only when the sniffed type agrees with it.
func detectContentType(data []byte, declared string) (string, error) {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if strings.HasPrefix(declared, "image/") && detected.Is(declared) {
		return declared, nil
	}
	return detected.String(), nil
}

// Service stores image payloads in an fs-jetstream bucket.
type Service struct {
	bucket  fsjetstream.FileStoragePort
	logger  types.Logger
	maxSize int64
	newID   func() string
	lookups singleflight.Group
}

// NewService creates an image service. A maxSize of zero disables the limit.
func NewService(bucket fsjetstream.FileStoragePort, logger types.Logger, maxSize int64) (*Service, error) {
	gen, err := nanoid.CustomASCII(idCharset, idLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &Service{
		bucket:  bucket,
		logger:  logger,
		maxSize: maxSize,
		newID:   func() string { return idPrefix + gen() },
	}, nil
}

// Upload stores data under a freshly generated key.
func (s *Service) Upload(ctx context.Context, data []byte, contentType string) (*ImageInfo, error) {
	return s.Put(ctx, s.newID(), data, contentType)
}

// Put stores data under id, replacing any existing image.
func (s *Service) Put(ctx context.Context, id string, data []byte, contentType string) (*ImageInfo, error) {
	if err := validateImageID(id); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedType)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(data), s.maxSize)
	}
	ct, err := detectContentType(data, contentType)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	info, err := s.bucket.Put(ctx, id, data,
		fsjetstream.WithDescription("Planner image"),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type": ct,
			"Created-At":   createdAt.Format(time.RFC3339),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	s.lookups.Forget(id)
	s.logger.Info("Image stored", "image_id", id, "size", info.Size, "content_type", ct)
	return &ImageInfo{
		ID:          id,
		Size:        info.Size,
		ContentType: ct,
		Digest:      info.Digest,
		CreatedAt:   createdAt,
		URL:         LocalURL(id),
	}, nil
}

// Get returns the image stored under id. Absent keys and retrieval
// failures both report false; failures are logged.
func (s *Service) Get(ctx context.Context, id string) (*Image, bool) {
	obj, err := s.find(ctx, id)
	if err != nil {
		s.logger.Warn("Image lookup failed", "image_id", id, "error", err)
		return nil, false
	}
	if obj == nil {
		return nil, false
	}

	data, err := s.bucket.Get(obj.Name)
	if err != nil {
		s.logger.Warn("Image read failed", "image_id", id, "error", err)
		return nil, false
	}

	return &Image{ImageInfo: buildImageInfo(id, obj), Data: data}, true
}

// Stat returns metadata for id without the payload.
func (s *Service) Stat(ctx context.Context, id string) (*ImageInfo, error) {
	obj, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	info := buildImageInfo(id, obj)
	return &info, nil
}

// Delete removes id. Deleting an absent image is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	obj, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if obj == nil {
		s.logger.Debug("Image already absent", "image_id", id)
		return nil
	}
	if err := s.bucket.Delete(obj.Name); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, err)
	}
	s.lookups.Forget(id)
	s.logger.Info("Image deleted", "image_id", id)
	return nil
}

// Resolve picks the image source to display for ref: the local handle if
// the key resolves, else the remote URL, else "" for no image.
func (s *Service) Resolve(ctx context.Context, ref planner.ImageRef) string {
	if ref.LocalID != "" && s.exists(ctx, ref.LocalID) {
		return LocalURL(ref.LocalID)
	}
	return ref.URL
}

// exists collapses concurrent lookups of the same key.
func (s *Service) exists(ctx context.Context, id string) bool {
	v, err, _ := s.lookups.Do(id, func() (any, error) {
		obj, err := s.find(ctx, id)
		return obj != nil, err
	})
	if err != nil {
		s.logger.Warn("Image lookup failed, falling back", "image_id", id, "error", err)
		return false
	}
	return v.(bool)
}

// find returns the object stored under id, or nil when there is none.
func (s *Service) find(ctx context.Context, id string) (*fsjetstream.ObjectInfo, error) {
	if err := validateImageID(id); err != nil {
		return nil, err
	}

	obj, err := s.bucket.StatWithContext(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if obj == nil || obj.Deleted {
		return nil, nil
	}
	return obj, nil
}

// buildImageInfo creates an ImageInfo from stored object metadata.
func buildImageInfo(id string, obj *fsjetstream.ObjectInfo) ImageInfo {
	info := ImageInfo{
		ID:          id,
		Size:        obj.Size,
		ContentType: obj.Headers["Content-Type"],
		Digest:      obj.Digest,
		CreatedAt:   obj.ModTime,
		URL:         LocalURL(id),
	}
	if info.ContentType == "" {
		info.ContentType = "application/octet-stream"
	}
	if ts, err := time.Parse(time.RFC3339, obj.Headers["Created-At"]); err == nil {
		info.CreatedAt = ts
	}
	return info
}
