package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectInvitation = `SELECT id, capsule_id, email, invited_by, status, invited_at, accepted_at FROM invitations`

func scanInvitation(s interface{ Scan(...any) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var (
		status   string
		accepted sql.NullTime
	)
	if err := s.Scan(&inv.ID, &inv.CapsuleID, &inv.Email, &inv.InvitedBy, &status, &inv.InvitedAt, &accepted); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	if accepted.Valid {
		inv.AcceptedAt = &accepted.Time
	}
	return inv, nil
}

func (r *PostgresRepository) Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	query := `
		INSERT INTO invitations (capsule_id, email, invited_by, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (capsule_id, email) DO NOTHING
		RETURNING id, status, invited_at
	`
	var status string
	err := r.db.QueryRowContext(ctx, query, inv.CapsuleID, inv.Email, inv.InvitedBy).Scan(&inv.ID, &status, &inv.InvitedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	inv.Status = models.InvitationStatus(status)
	return inv, nil
}

func (r *PostgresRepository) GetByCapsuleAndEmail(ctx context.Context, capsuleID, email string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx,
		selectInvitation+` WHERE capsule_id = $1 AND email = $2`, capsuleID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) ListPendingByEmail(ctx context.Context, email string) ([]*models.Invitation, error) {
	return r.list(ctx, selectInvitation+` WHERE email = $1 AND status = 'pending' ORDER BY invited_at`, email)
}

func (r *PostgresRepository) ListByCapsule(ctx context.Context, capsuleID string) ([]*models.Invitation, error) {
	return r.list(ctx, selectInvitation+` WHERE capsule_id = $1 ORDER BY invited_at`, capsuleID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE invitations SET status = 'accepted', accepted_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteByCapsule(ctx context.Context, capsuleID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE capsule_id = $1`, capsuleID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePendingByCapsuleAndEmails(ctx context.Context, capsuleID string, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM invitations
		 WHERE capsule_id = $1 AND status = 'pending' AND email = ANY($2)
	`
	res, err := r.db.ExecContext(ctx, query, capsuleID, emails)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
