package archive

import (
	"encoding/json"
	"time"
)

// Coordinates is an explicit point attached to an event (WGS 84).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a rectangle in floating-point degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Place is a named location with an associated bounding box, as opposed to a
// precise coordinate pair.
type Place struct {
	Name        string       `json:"name"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// Event is one message delivered by the feed. Geo fields are pointers so
// absence is distinguishable from the zero value. Raw holds the payload
// exactly as it arrived; it is what gets archived.
type Event struct {
	ID          string       `json:"id"`
	Text        string       `json:"text,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Place       *Place       `json:"place,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ArchivedNotification is published to Kafka after an event payload is
// durably stored.
type ArchivedNotification struct {
	EventID   string    `json:"event_id"`
	ObjectKey string    `json:"object_key"`
	Container string    `json:"container"`
	SizeBytes int64     `json:"size_bytes"`
	StoredAt  time.Time `json:"stored_at"`
}
