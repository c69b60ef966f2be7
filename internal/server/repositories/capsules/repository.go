// Package capsules persists capsules together with their items,
// participants and invited emails.
package capsules

import (
	"context"
	"time"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type Repository interface {
	// Create inserts the capsule row and fills in ID and timestamps.
	// Items, participants and emails are stored separately.
	Create(ctx context.Context, c *models.Capsule) (*models.Capsule, error)

	// GetByID loads the capsule with items, participants and emails.
	GetByID(ctx context.Context, id string) (*models.Capsule, error)

	// ListVisible returns capsules the viewer owns or participates in, plus
	// every public sealed capsule, newest first.
	ListVisible(ctx context.Context, viewerID string) ([]*models.Capsule, error)

	// ListPublicRevealed returns public sealed capsules unlocked at or before
	// now, latest unlock first.
	ListPublicRevealed(ctx context.Context, now time.Time) ([]*models.Capsule, error)

	// ListPendingUnlock returns sealed, not yet notified capsules unlocking at
	// or before boundary.
	ListPendingUnlock(ctx context.Context, boundary time.Time) ([]*models.Capsule, error)

	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)

	// UpdateDraft rewrites the mutable scalar fields of a capsule that is
	// still a draft. A sealed capsule yields common.ErrorConflict.
	UpdateDraft(ctx context.Context, c *models.Capsule) (*models.Capsule, error)

	// Seal flips is_locked with a compare-and-set. It reports false when the
	// capsule was already sealed.
	Seal(ctx context.Context, id string) (bool, error)

	// MarkSent flips is_sent with a compare-and-set. It reports false when
	// another sweep got there first.
	MarkSent(ctx context.Context, id string) (bool, error)

	ReplaceItems(ctx context.Context, capsuleID string, items []models.Item) ([]models.Item, error)

	// AddParticipant is add-if-absent. It reports whether a row was added.
	AddParticipant(ctx context.Context, capsuleID, userID string) (bool, error)
	ReplaceParticipants(ctx context.Context, capsuleID string, userIDs []string) error

	AddEmail(ctx context.Context, capsuleID, email string) error
	ReplaceEmails(ctx context.Context, capsuleID string, emails []string) error

	// DeleteContents removes items, participants and emails of a capsule.
	DeleteContents(ctx context.Context, capsuleID string) error
	Delete(ctx context.Context, id string) error
}
