package comments

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (id, capsule_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.CapsuleID, c.AuthorID, c.Content).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

const selectComment = `
	SELECT c.id, c.capsule_id, c.author_id, COALESCE(u.name, ''), c.content, c.created_at
	FROM comments c
	LEFT JOIN users u ON u.id = c.author_id
`

func scanComment(s interface{ Scan(...any) error }) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.Scan(&c.ID, &c.CapsuleID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt)
	return c, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, selectComment+`WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByCapsule(ctx context.Context, capsuleID string) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, selectComment+`WHERE c.capsule_id = $1 ORDER BY c.id`, capsuleID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByCapsule(ctx context.Context, capsuleID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE capsule_id = $1`, capsuleID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
