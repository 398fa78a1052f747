package images

import "time"

// ImageInfo describes a stored image without its payload.
type ImageInfo struct {
	ID          string    `json:"id"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Digest      string    `json:"digest"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
}

// Image is a stored payload with its media type.
type Image struct {
	ImageInfo
	Data []byte `json:"-"`
}
