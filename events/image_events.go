package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ImageReleasedEvent is emitted when a task or tag stops referencing a
// locally stored image, so the binary can be removed.
type ImageReleasedEvent struct {
	ImageID    string    `json:"image_id"`
	OwnerKind  string    `json:"owner_kind"`
	OwnerID    string    `json:"owner_id"`
	ReleasedAt time.Time `json:"released_at"`
}

// ImageReleasedV1 is the typed event definition for image release.
// Subject: events.records.v1.image-released
var ImageReleasedV1 = helper.EventDefinition[ImageReleasedEvent](
	"records", "ImageReleased", "v1",
)
