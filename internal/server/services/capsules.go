package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorylane/internal/server/visibility"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

// ItemInput describes one item of a create or update request.
// An empty Kind means text.
type ItemInput struct {
	Kind        models.ItemKind
	Content     string
	Description string
	Style       map[string]string
	Metadata    map[string]any
}

type CreateCapsuleInput struct {
	Title           string
	Description     string
	Image           string
	BackgroundMusic string
	UnlockedDate    time.Time
	IsPublic        bool
	IsLocked        bool
	Items           []ItemInput
	Emails          []string
}

// UpdateCapsuleInput carries the optional fields of an update. Nil means
// "leave unchanged"; a non-nil empty slice clears the collection.
type UpdateCapsuleInput struct {
	Title           *string
	Description     *string
	Image           *string
	BackgroundMusic *string
	UnlockedDate    *time.Time
	IsPublic        *bool
	IsLocked        *bool
	Items           *[]ItemInput
	Emails          *[]string
	Participants    *[]string
}

// CapsuleView is either the full capsule or its redacted projection.
// Exactly one field is set.
type CapsuleView struct {
	Full     *models.Capsule
	Redacted *models.RedactedCapsule
}

// CapsuleService owns the capsule lifecycle: create, read through the
// visibility rules, update while a draft, seal and delete.
type CapsuleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      InvitationMailer
	log         logging.Logger
	now         timex.Clock
}

func NewCapsuleService(db *sql.DB, m repomanager.RepositoryManager, mailer InvitationMailer, log logging.Logger, now timex.Clock) *CapsuleService {
	return &CapsuleService{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		log:         log.With("module", "capsules"),
		now:         now,
	}
}

// Create stores a new capsule owned by ownerID. Every email becomes an
// invited address with a pending invitation; invitation emails are sent
// after the transaction commits.
func (s *CapsuleService) Create(ctx context.Context, ownerID string, in CreateCapsuleInput) (*models.Capsule, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, common.NewValidationError("title", "is required")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, common.NewValidationError("description", "is required")
	}
	if in.UnlockedDate.IsZero() {
		return nil, common.NewValidationError("unlockedDate", "is required")
	}
	items, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}
	emails, err := normalizeEmails("emails", in.Emails)
	if err != nil {
		return nil, err
	}

	c := &models.Capsule{
		OwnerID:         ownerID,
		Title:           title,
		Description:     description,
		Image:           strings.TrimSpace(in.Image),
		BackgroundMusic: strings.TrimSpace(in.BackgroundMusic),
		IsPublic:        in.IsPublic,
		IsLocked:        in.IsLocked,
		UnlockedDate:    in.UnlockedDate.UTC(),
	}

	var out *models.Capsule
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Capsules(tx)
		created, err := repo.Create(ctx, c)
		if err != nil {
			return fmt.Errorf("error creating capsule: %w", err)
		}
		created.Items, err = repo.ReplaceItems(ctx, created.ID, items)
		if err != nil {
			return fmt.Errorf("error storing items: %w", err)
		}
		if err := s.invite(ctx, tx, created.ID, ownerID, emails); err != nil {
			return err
		}
		created.Emails = emails
		created.Participants = []string{}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "capsule created", "capsule_id", out.ID, "owner_id", ownerID, "sealed", out.IsLocked)
	if len(emails) > 0 {
		sendInvitations(ctx, s.mailer, s.log, out, displayName(ctx, s.repomanager, s.db, ownerID), emails)
	}
	return out, nil
}

// Get returns the capsule as viewerID may see it. Anonymous viewers get
// common.ErrorNotFound for anything they cannot see; authenticated viewers
// get the redacted projection instead.
func (s *CapsuleService) Get(ctx context.Context, id, viewerID string) (*CapsuleView, error) {
	c, err := loadCapsule(ctx, s.repomanager, s.db, id)
	if err != nil {
		return nil, err
	}
	if visibility.CanSee(c, viewerID, s.now()) {
		return &CapsuleView{Full: c}, nil
	}
	if viewerID == "" {
		return nil, common.ErrorNotFound
	}
	r := c.Redact()
	return &CapsuleView{Redacted: &r}, nil
}

// ListVisible returns the capsules viewerID owns or participates in plus
// every public sealed capsule, each projected through the same rule as Get.
func (s *CapsuleService) ListVisible(ctx context.Context, viewerID string) ([]CapsuleView, error) {
	list, err := s.repomanager.Capsules(s.db).ListVisible(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("error listing capsules: %w", err)
	}
	now := s.now()
	out := make([]CapsuleView, 0, len(list))
	for _, c := range list {
		if visibility.CanSee(c, viewerID, now) {
			out = append(out, CapsuleView{Full: c})
			continue
		}
		r := c.Redact()
		out = append(out, CapsuleView{Redacted: &r})
	}
	return out, nil
}

// ListPublic returns revealed public capsules, latest unlock first.
func (s *CapsuleService) ListPublic(ctx context.Context) ([]*models.Capsule, error) {
	list, err := s.repomanager.Capsules(s.db).ListPublicRevealed(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("error listing public capsules: %w", err)
	}
	return list, nil
}

// GetPublic is Get for an anonymous viewer.
func (s *CapsuleService) GetPublic(ctx context.Context, id string) (*models.Capsule, error) {
	v, err := s.Get(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return v.Full, nil
}

// Update rewrites a draft. Sealed capsules are frozen and yield
// common.ErrorConflict. Setting IsLocked seals the draft in the same call.
func (s *CapsuleService) Update(ctx context.Context, id, callerID string, in UpdateCapsuleInput) (*models.Capsule, error) {
	c, err := loadCapsule(ctx, s.repomanager, s.db, id)
	if err != nil {
		return nil, err
	}
	if !visibility.IsOwner(c, callerID) {
		return nil, common.ErrorForbidden
	}
	if c.IsLocked {
		return nil, common.ErrorConflict
	}

	if in.Title != nil {
		if c.Title = strings.TrimSpace(*in.Title); c.Title == "" {
			return nil, common.NewValidationError("title", "is required")
		}
	}
	if in.Description != nil {
		if c.Description = strings.TrimSpace(*in.Description); c.Description == "" {
			return nil, common.NewValidationError("description", "is required")
		}
	}
	if in.UnlockedDate != nil {
		if in.UnlockedDate.IsZero() {
			return nil, common.NewValidationError("unlockedDate", "is required")
		}
		c.UnlockedDate = in.UnlockedDate.UTC()
	}
	if in.Image != nil {
		c.Image = strings.TrimSpace(*in.Image)
	}
	if in.BackgroundMusic != nil {
		c.BackgroundMusic = strings.TrimSpace(*in.BackgroundMusic)
	}
	if in.IsPublic != nil {
		c.IsPublic = *in.IsPublic
	}
	if in.IsLocked != nil {
		c.IsLocked = *in.IsLocked
	}

	var items []models.Item
	if in.Items != nil {
		if items, err = buildItems(*in.Items); err != nil {
			return nil, err
		}
	}
	var emails, added, removed []string
	if in.Emails != nil {
		if emails, err = normalizeEmails("emails", *in.Emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if !slices.Contains(c.Emails, e) {
				added = append(added, e)
			}
		}
		for _, e := range c.Emails {
			if !slices.Contains(emails, e) {
				removed = append(removed, e)
			}
		}
	}
	var participants []string
	if in.Participants != nil {
		if participants, err = participantIDs(*in.Participants); err != nil {
			return nil, err
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Capsules(tx)
		if _, err := repo.UpdateDraft(ctx, c); err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return err
			}
			return fmt.Errorf("error updating capsule: %w", err)
		}
		if in.Items != nil {
			if _, err := repo.ReplaceItems(ctx, c.ID, items); err != nil {
				return fmt.Errorf("error storing items: %w", err)
			}
		}
		if in.Emails != nil {
			if err := repo.ReplaceEmails(ctx, c.ID, emails); err != nil {
				return fmt.Errorf("error storing emails: %w", err)
			}
			// A dropped address must not turn into a participant at its next login.
			if _, err := s.repomanager.Invitations(tx).DeletePendingByCapsuleAndEmails(ctx, c.ID, removed); err != nil {
				return fmt.Errorf("error withdrawing invitations: %w", err)
			}
			if err := s.invite(ctx, tx, c.ID, callerID, added); err != nil {
				return err
			}
		}
		if in.Participants != nil {
			if err := repo.ReplaceParticipants(ctx, c.ID, participants); err != nil {
				return fmt.Errorf("error storing participants: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := s.repomanager.Capsules(s.db).GetByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "capsule updated", "capsule_id", c.ID, "sealed", out.IsLocked)
	if len(added) > 0 {
		sendInvitations(ctx, s.mailer, s.log, out, displayName(ctx, s.repomanager, s.db, callerID), added)
	}
	return out, nil
}

// Seal freezes a draft. A second Seal, including a concurrent one that
// loses the race, yields common.ErrorConflict.
func (s *CapsuleService) Seal(ctx context.Context, id, callerID string) (*models.Capsule, error) {
	c, err := loadCapsule(ctx, s.repomanager, s.db, id)
	if err != nil {
		return nil, err
	}
	if !visibility.IsOwner(c, callerID) {
		return nil, common.ErrorForbidden
	}
	if c.IsLocked {
		return nil, common.ErrorConflict
	}

	ok, err := s.repomanager.Capsules(s.db).Seal(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("error sealing capsule: %w", err)
	}
	if !ok {
		return nil, common.ErrorConflict
	}

	c.IsLocked = true
	c.IsSent = false
	s.log.Info(ctx, "capsule sealed", "capsule_id", c.ID, "unlocked_date", c.UnlockedDate)
	return c, nil
}

// Delete removes the capsule with its items, invitations and comments, in
// any state.
func (s *CapsuleService) Delete(ctx context.Context, id, callerID string) error {
	c, err := loadCapsule(ctx, s.repomanager, s.db, id)
	if err != nil {
		return err
	}
	if !visibility.IsOwner(c, callerID) {
		return common.ErrorForbidden
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return deleteCapsuleCascade(ctx, s.repomanager, tx, c.ID)
	}); err != nil {
		return err
	}
	s.log.Info(ctx, "capsule deleted", "capsule_id", c.ID)
	return nil
}

// invite records emails as invited addresses with pending invitations.
// Addresses that already have an invitation are left as they are.
func (s *CapsuleService) invite(ctx context.Context, tx dbx.DBTX, capsuleID, inviterID string, emails []string) error {
	for _, e := range emails {
		if err := s.repomanager.Capsules(tx).AddEmail(ctx, capsuleID, e); err != nil {
			return fmt.Errorf("error storing email: %w", err)
		}
		_, err := s.repomanager.Invitations(tx).Create(ctx, &models.Invitation{
			CapsuleID: capsuleID,
			Email:     e,
			InvitedBy: inviterID,
			Status:    models.InvitationPending,
		})
		if err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("error creating invitation: %w", err)
		}
	}
	return nil
}

func buildItems(in []ItemInput) ([]models.Item, error) {
	items := make([]models.Item, 0, len(in))
	for i, it := range in {
		kind := it.Kind
		if kind == "" {
			kind = models.ItemText
		}
		if !kind.Valid() {
			return nil, common.NewValidationError("items", fmt.Sprintf("has unknown kind %q", it.Kind))
		}
		items = append(items, models.Item{
			Position:    i,
			Kind:        kind,
			Content:     it.Content,
			Description: it.Description,
			Style:       it.Style,
			Metadata:    it.Metadata,
		})
	}
	return items, nil
}

func participantIDs(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if _, err := uuid.Parse(id); err != nil {
			return nil, common.NewValidationError("participants", "contains a malformed id")
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}
