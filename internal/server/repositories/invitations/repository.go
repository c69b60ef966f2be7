// Package invitations persists email invitations to capsules.
package invitations

import (
	"context"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type Repository interface {
	// Create stores a pending invitation. An invitation for the same
	// (capsule, email) pair yields common.ErrorAlreadyExists.
	Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	GetByCapsuleAndEmail(ctx context.Context, capsuleID, email string) (*models.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*models.Invitation, error)
	ListByCapsule(ctx context.Context, capsuleID string) ([]*models.Invitation, error)
	// MarkAccepted reports false when the invitation was no longer pending.
	MarkAccepted(ctx context.Context, id string) (bool, error)
	DeleteByCapsule(ctx context.Context, capsuleID string) error
	// DeletePendingByCapsuleAndEmails drops pending invitations for the given
	// addresses. Accepted invitations are kept.
	DeletePendingByCapsuleAndEmails(ctx context.Context, capsuleID string, emails []string) (int64, error)
}
