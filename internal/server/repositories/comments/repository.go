// Package comments persists capsule comments.
package comments

import (
	"context"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	// ListByCapsule returns comments in creation order with author names.
	ListByCapsule(ctx context.Context, capsuleID string) ([]*models.Comment, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCapsule(ctx context.Context, capsuleID string) error
}
