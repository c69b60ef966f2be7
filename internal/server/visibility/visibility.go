// Package visibility decides who may see a capsule and its comments.
//
// A capsule is in exactly one state at a given instant:
//
//	Draft     IsLocked == false
//	Sealed    IsLocked == true and UnlockedDate >  now
//	Revealed  IsLocked == true and UnlockedDate <= now
//
// Draft capsules are visible to their owner only. Sealed capsules are
// visible to nobody, the owner included. Revealed capsules are visible to
// the owner, to participants, and to everyone when public.
//
// An empty viewer id means an anonymous caller. All functions are pure.
package visibility

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type State int

const (
	Draft State = iota
	Sealed
	Revealed
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Sealed:
		return "sealed"
	case Revealed:
		return "revealed"
	}
	return "unknown"
}

// Classify derives the lifecycle state of c at now.
func Classify(c *models.Capsule, now time.Time) State {
	if !c.IsLocked {
		return Draft
	}
	if c.UnlockedDate.After(now) {
		return Sealed
	}
	return Revealed
}

func IsOwner(c *models.Capsule, viewerID string) bool {
	return viewerID != "" && c.OwnerID == viewerID
}

func IsParticipant(c *models.Capsule, viewerID string) bool {
	return viewerID != "" && slices.Contains(c.Participants, viewerID)
}

// IsMember reports whether viewerID is the owner or a participant.
func IsMember(c *models.Capsule, viewerID string) bool {
	return IsOwner(c, viewerID) || IsParticipant(c, viewerID)
}

// CanSee reports whether viewerID may see the full contents of c at now.
func CanSee(c *models.Capsule, viewerID string, now time.Time) bool {
	switch Classify(c, now) {
	case Draft:
		return IsOwner(c, viewerID)
	case Revealed:
		return c.IsPublic || IsMember(c, viewerID)
	default:
		return false
	}
}

// CanReadComments follows CanSee exactly.
func CanReadComments(c *models.Capsule, viewerID string, now time.Time) bool {
	return CanSee(c, viewerID, now)
}

// CanComment additionally requires an authenticated viewer and a Revealed
// capsule. Non-public capsules accept comments from members only.
func CanComment(c *models.Capsule, viewerID string, now time.Time) bool {
	if viewerID == "" || Classify(c, now) != Revealed {
		return false
	}
	return c.IsPublic || IsMember(c, viewerID)
}
