// Package services contains the server-side business logic. Transports (the
// gin HTTP API and the admin gRPC server) translate requests into calls on
// the services here and map the common sentinel errors back to status codes.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
)

// InvitationMailer sends the "you have been invited" email.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, to, capsuleTitle, inviterName string) error
}

// UnlockMailer sends the "your capsule is unlocked" email.
type UnlockMailer interface {
	SendUnlock(ctx context.Context, to, capsuleID, capsuleTitle string) error
}

// loadCapsule fetches a capsule by id. Ids that are not UUIDs cannot exist
// and are reported as not found without touching the database.
func loadCapsule(ctx context.Context, rm repomanager.RepositoryManager, db dbx.DBTX, id string) (*models.Capsule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return rm.Capsules(db).GetByID(ctx, id)
}

// deleteCapsuleCascade removes a capsule and everything that hangs off it.
// It must run inside a transaction.
func deleteCapsuleCascade(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX, id string) error {
	if err := rm.Comments(tx).DeleteByCapsule(ctx, id); err != nil {
		return fmt.Errorf("error deleting comments: %w", err)
	}
	if err := rm.Invitations(tx).DeleteByCapsule(ctx, id); err != nil {
		return fmt.Errorf("error deleting invitations: %w", err)
	}
	if err := rm.Capsules(tx).DeleteContents(ctx, id); err != nil {
		return fmt.Errorf("error deleting capsule contents: %w", err)
	}
	if err := rm.Capsules(tx).Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting capsule: %w", err)
	}
	return nil
}

// normalizeEmails validates, lowercases and de-duplicates addresses while
// keeping their first-seen order.
func normalizeEmails(field string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		e := auth.NormalizeEmail(raw)
		if err := auth.ValidateEmail(e); err != nil {
			return nil, common.NewValidationError(field, "contains a malformed address")
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
