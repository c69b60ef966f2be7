// Package models holds the persistent domain types shared by repositories,
// services and transports.
package models

import "time"

// ItemKind enumerates what an Item carries.
type ItemKind string

const (
	ItemText     ItemKind = "text"
	ItemImage    ItemKind = "image"
	ItemVideo    ItemKind = "video"
	ItemAudio    ItemKind = "audio"
	ItemDocument ItemKind = "document"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemText, ItemImage, ItemVideo, ItemAudio, ItemDocument:
		return true
	}
	return false
}

// Item is a single memory inside a capsule. Content is either text or an
// opaque media reference (storage key or URL).
type Item struct {
	ID          string
	CapsuleID   string
	Position    int
	Kind        ItemKind
	Content     string
	Description string
	Style       map[string]string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Capsule is the shareable container. IsLocked is the stored seal flag.
// Whether a sealed capsule is pending or revealed depends on UnlockedDate
// and is computed by the visibility package.
type Capsule struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	Image           string
	BackgroundMusic string
	IsPublic        bool
	IsLocked        bool
	IsSent          bool
	UnlockedDate    time.Time
	Items           []Item
	Participants    []string
	Emails          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RedactedCapsule is what a viewer gets when they may know a capsule exists
// but may not see its contents.
type RedactedCapsule struct {
	ID           string
	IsLocked     bool
	UnlockedDate time.Time
}

// Redact returns the redacted projection of c.
func (c *Capsule) Redact() RedactedCapsule {
	return RedactedCapsule{ID: c.ID, IsLocked: c.IsLocked, UnlockedDate: c.UnlockedDate}
}
