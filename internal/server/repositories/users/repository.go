// Package users declares the account store contract and its Postgres
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its ID and timestamps.
	// A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetEmailsByIDs returns the emails of the given accounts, skipping ids
	// that no longer exist.
	GetEmailsByIDs(ctx context.Context, ids []string) ([]string, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
