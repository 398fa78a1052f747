package images

import "errors"

// Sentinel errors for image operations.
var (
	// ErrImageNotFound is returned when no image is stored under the key.
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidImageID is returned for an empty or malformed image key.
	ErrInvalidImageID = errors.New("invalid image ID")

	// ErrUnsupportedType is returned when the payload is not an image.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrImageTooLarge is returned when the payload exceeds the size limit.
	ErrImageTooLarge = errors.New("image too large")
)
