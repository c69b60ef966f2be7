package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/idgen"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorylane/internal/server/visibility"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

const maxCommentLength = 2000

// CommentService reads and writes capsule comments behind the visibility
// rules.
type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         timex.Clock
	newID       idgen.Generator
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, now timex.Clock, newID idgen.Generator) *CommentService {
	return &CommentService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "comments"),
		now:         now,
		newID:       newID,
	}
}

// List returns the comments of a capsule in creation order. A capsule the
// viewer cannot see is not found for anonymous viewers and forbidden for
// authenticated ones.
func (s *CommentService) List(ctx context.Context, capsuleID, viewerID string) ([]*models.Comment, error) {
	c, err := loadCapsule(ctx, s.repomanager, s.db, capsuleID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanReadComments(c, viewerID, s.now()) {
		if viewerID == "" {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorForbidden
	}

	list, err := s.repomanager.Comments(s.db).ListByCapsule(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing comments: %w", err)
	}
	return list, nil
}

// Create posts a comment. Only revealed capsules accept comments, and
// private ones only from the owner and participants.
func (s *CommentService) Create(ctx context.Context, capsuleID, authorID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.NewValidationError("content", "is required")
	}
	if len(content) > maxCommentLength {
		return nil, common.NewValidationError("content", "is too long")
	}

	c, err := loadCapsule(ctx, s.repomanager, s.db, capsuleID)
	if err != nil {
		return nil, err
	}
	if !visibility.CanComment(c, authorID, s.now()) {
		return nil, common.ErrorForbidden
	}

	out, err := s.repomanager.Comments(s.db).Create(ctx, &models.Comment{
		ID:        s.newID(),
		CapsuleID: c.ID,
		AuthorID:  authorID,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating comment: %w", err)
	}
	out.AuthorName = displayName(ctx, s.repomanager, s.db, authorID)
	return out, nil
}

// Delete removes a comment. The author and the capsule owner may do so.
func (s *CommentService) Delete(ctx context.Context, capsuleID string, commentID int64, callerID string) error {
	c, err := loadCapsule(ctx, s.repomanager, s.db, capsuleID)
	if err != nil {
		return err
	}
	repo := s.repomanager.Comments(s.db)
	cm, err := repo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if cm.CapsuleID != c.ID {
		return common.ErrorNotFound
	}
	if callerID == "" || (cm.AuthorID != callerID && !visibility.IsOwner(c, callerID)) {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, cm.ID); err != nil {
		return err
	}
	s.log.Info(ctx, "comment deleted", "capsule_id", c.ID, "comment_id", cm.ID, "by", callerID)
	return nil
}
