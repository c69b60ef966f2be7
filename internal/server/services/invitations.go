package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorylane/internal/server/visibility"
)

// InviteResult reports what Invite did.
type InviteResult struct {
	Invitation *models.Invitation
	// Created is false when the address had already been invited.
	Created bool
	// EmailSent is false when no email went out, either because the
	// invitation already existed or because delivery failed.
	EmailSent bool
	// UnlockSent is true when the capsule had already been revealed and
	// the unlock email went out to the new address as well.
	UnlockSent bool
}

// InvitationService links email addresses to capsules and converts them
// into participations when the addressee logs in.
type InvitationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      InvitationMailer
	log         logging.Logger
}

func NewInvitationService(db *sql.DB, m repomanager.RepositoryManager, mailer InvitationMailer, log logging.Logger) *InvitationService {
	return &InvitationService{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		log:         log.With("module", "invitations"),
	}
}

// Invite adds email to the capsule's invited addresses and records a
// pending invitation, then sends the invitation email. The invitation is
// kept even when the email cannot be delivered. A capsule whose unlock
// sweep already ran gets its unlock email sent to the new address right
// away, since no later sweep will pick it up.
func (s *InvitationService) Invite(ctx context.Context, capsuleID, email, inviterID string) (*InviteResult, error) {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}

	c, err := loadCapsule(ctx, s.repomanager, s.db, capsuleID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsOwner(c, inviterID) {
		return nil, common.ErrorForbidden
	}

	res := &InviteResult{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Capsules(tx).AddEmail(ctx, c.ID, email); err != nil {
			return fmt.Errorf("error storing email: %w", err)
		}
		repo := s.repomanager.Invitations(tx)
		inv, err := repo.Create(ctx, &models.Invitation{
			CapsuleID: c.ID,
			Email:     email,
			InvitedBy: inviterID,
			Status:    models.InvitationPending,
		})
		switch {
		case err == nil:
			res.Invitation, res.Created = inv, true
			return nil
		case errors.Is(err, common.ErrorAlreadyExists):
			res.Invitation, err = repo.GetByCapsuleAndEmail(ctx, c.ID, email)
			return err
		default:
			return fmt.Errorf("error creating invitation: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	if res.Created {
		sent := sendInvitations(ctx, s.mailer, s.log, c, displayName(ctx, s.repomanager, s.db, inviterID), []string{email})
		res.EmailSent = sent[email]
		if c.IsSent {
			res.UnlockSent = s.sendLateUnlock(ctx, c, email)
		}
		s.log.Info(ctx, "invitation created", "capsule_id", c.ID, "email_sent", res.EmailSent)
	}
	return res, nil
}

func (s *InvitationService) sendLateUnlock(ctx context.Context, c *models.Capsule, email string) bool {
	um, ok := s.mailer.(UnlockMailer)
	if !ok {
		return false
	}
	if err := um.SendUnlock(ctx, email, c.ID, c.Title); err != nil {
		s.log.Warn(ctx, "late unlock email failed", "capsule_id", c.ID, "error", err)
		return false
	}
	return true
}

// ListPending returns the pending invitations addressed to email.
func (s *InvitationService) ListPending(ctx context.Context, email string) ([]*models.Invitation, error) {
	list, err := s.repomanager.Invitations(s.db).ListPendingByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("error listing invitations: %w", err)
	}
	return list, nil
}

// ListForCapsule returns every invitation of a capsule. Owner only.
func (s *InvitationService) ListForCapsule(ctx context.Context, capsuleID, callerID string) ([]*models.Invitation, error) {
	c, err := loadCapsule(ctx, s.repomanager, s.db, capsuleID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsOwner(c, callerID) {
		return nil, common.ErrorForbidden
	}
	list, err := s.repomanager.Invitations(s.db).ListByCapsule(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing invitations: %w", err)
	}
	return list, nil
}

// ResolveOnLogin makes userID a participant of every capsule with a pending
// invitation for email and marks those invitations accepted. Each invitation
// is handled in its own transaction; a failure is logged and the rest are
// still processed. It returns how many invitations were accepted.
func (s *InvitationService) ResolveOnLogin(ctx context.Context, email, userID string) (int, error) {
	pending, err := s.ListPending(ctx, email)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, inv := range pending {
		var accepted bool
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if _, err := s.repomanager.Capsules(tx).AddParticipant(ctx, inv.CapsuleID, userID); err != nil {
				return fmt.Errorf("error adding participant: %w", err)
			}
			ok, err := s.repomanager.Invitations(tx).MarkAccepted(ctx, inv.ID)
			if err != nil {
				return fmt.Errorf("error accepting invitation: %w", err)
			}
			accepted = ok
			return nil
		})
		if err != nil {
			s.log.Error(ctx, "resolving invitation failed",
				"invitation_id", inv.ID, "capsule_id", inv.CapsuleID, "user_id", userID, "error", err)
			continue
		}
		if accepted {
			resolved++
		}
	}
	if resolved > 0 {
		s.log.Info(ctx, "invitations resolved", "user_id", userID, "count", resolved)
	}
	return resolved, nil
}

// sendInvitations emails every address and reports per address whether the
// email went out. Failures are logged and never returned.
func sendInvitations(ctx context.Context, mailer InvitationMailer, log logging.Logger, c *models.Capsule, inviter string, emails []string) map[string]bool {
	sent := make(map[string]bool, len(emails))
	if mailer == nil {
		return sent
	}
	for _, e := range emails {
		if err := mailer.SendInvitation(ctx, e, c.Title, inviter); err != nil {
			log.Warn(ctx, "invitation email failed", "capsule_id", c.ID, "error", err)
			continue
		}
		sent[e] = true
	}
	return sent
}

// displayName looks up the name shown for userID in emails and comments.
// Lookup failures yield an empty name.
func displayName(ctx context.Context, rm repomanager.RepositoryManager, db dbx.DBTX, userID string) string {
	u, err := rm.Users(db).GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Name
}
