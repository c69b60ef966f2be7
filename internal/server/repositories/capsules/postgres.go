package capsules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

const capsuleColumns = `c.id, c.owner_id, c.title, c.description, c.image, c.background_music,
	c.is_public, c.is_locked, c.is_sent, c.unlocked_date, c.created_at, c.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCapsule(s scanner) (*models.Capsule, error) {
	c := &models.Capsule{}
	err := s.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.Image, &c.BackgroundMusic,
		&c.IsPublic, &c.IsLocked, &c.IsSent, &c.UnlockedDate, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Capsule) (*models.Capsule, error) {
	query := `
		INSERT INTO capsules (owner_id, title, description, image, background_music, is_public, is_locked, unlocked_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_sent, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.Title, c.Description, c.Image, c.BackgroundMusic, c.IsPublic, c.IsLocked, c.UnlockedDate,
	).Scan(&c.ID, &c.IsSent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules c WHERE c.id = $1`

	c, err := scanCapsule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.loadRelations(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) ListVisible(ctx context.Context, viewerID string) ([]*models.Capsule, error) {
	query := `
		SELECT ` + capsuleColumns + `
		FROM capsules c
		WHERE c.owner_id = $1
		   OR EXISTS (SELECT 1 FROM capsule_participants p WHERE p.capsule_id = c.id AND p.user_id = $1)
		   OR (c.is_public AND c.is_locked)
		ORDER BY c.created_at DESC
	`
	return r.list(ctx, query, viewerID)
}

func (r *PostgresRepository) ListPublicRevealed(ctx context.Context, now time.Time) ([]*models.Capsule, error) {
	query := `
		SELECT ` + capsuleColumns + `
		FROM capsules c
		WHERE c.is_public AND c.is_locked AND c.unlocked_date <= $1
		ORDER BY c.unlocked_date DESC
	`
	return r.list(ctx, query, now)
}

func (r *PostgresRepository) ListPendingUnlock(ctx context.Context, boundary time.Time) ([]*models.Capsule, error) {
	query := `
		SELECT ` + capsuleColumns + `
		FROM capsules c
		WHERE c.is_locked AND NOT c.is_sent AND c.unlocked_date <= $1
		ORDER BY c.unlocked_date
	`
	return r.list(ctx, query, boundary)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.Capsule, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Capsule
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	// relations are loaded once the cursor is closed
	rows.Close()

	for _, c := range result {
		if err := r.loadRelations(ctx, c); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *PostgresRepository) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	return r.strings(ctx, `SELECT id FROM capsules WHERE owner_id = $1`, ownerID)
}

func (r *PostgresRepository) loadRelations(ctx context.Context, c *models.Capsule) error {
	var err error
	if c.Items, err = r.listItems(ctx, c.ID); err != nil {
		return err
	}
	if c.Participants, err = r.strings(ctx,
		`SELECT user_id FROM capsule_participants WHERE capsule_id = $1 ORDER BY added_at, user_id`, c.ID); err != nil {
		return err
	}
	if c.Emails, err = r.strings(ctx,
		`SELECT email FROM capsule_emails WHERE capsule_id = $1 ORDER BY email`, c.ID); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepository) strings(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) listItems(ctx context.Context, capsuleID string) ([]models.Item, error) {
	query := `
		SELECT id, position, kind, content, description, style, metadata, created_at
		FROM capsule_items
		WHERE capsule_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, capsuleID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var (
			it              = models.Item{CapsuleID: capsuleID}
			kind            string
			style, metadata []byte
		)
		if err := rows.Scan(&it.ID, &it.Position, &kind, &it.Content, &it.Description, &style, &metadata, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		it.Kind = models.ItemKind(kind)
		if err := unmarshalJSON(style, &it.Style); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(metadata, &it.Metadata); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode item json: %w", err)
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode item json: %w", err)
	}
	if string(b) == "null" {
		return "{}", nil
	}
	return string(b), nil
}

func (r *PostgresRepository) UpdateDraft(ctx context.Context, c *models.Capsule) (*models.Capsule, error) {
	query := `
		UPDATE capsules
		SET title = $2, description = $3, image = $4, background_music = $5,
		    is_public = $6, is_locked = $7, unlocked_date = $8, updated_at = now()
		WHERE id = $1 AND is_locked = false
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.Title, c.Description, c.Image, c.BackgroundMusic, c.IsPublic, c.IsLocked, c.UnlockedDate,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) compareAndSet(ctx context.Context, query, id string) (bool, error) {
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

func (r *PostgresRepository) Seal(ctx context.Context, id string) (bool, error) {
	return r.compareAndSet(ctx,
		`UPDATE capsules SET is_locked = true, is_sent = false, updated_at = now() WHERE id = $1 AND is_locked = false`, id)
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string) (bool, error) {
	return r.compareAndSet(ctx,
		`UPDATE capsules SET is_sent = true WHERE id = $1 AND is_sent = false`, id)
}

func (r *PostgresRepository) ReplaceItems(ctx context.Context, capsuleID string, items []models.Item) ([]models.Item, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capsule_items WHERE capsule_id = $1`, capsuleID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := `
		INSERT INTO capsule_items (capsule_id, position, kind, content, description, style, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	out := make([]models.Item, 0, len(items))
	for i, it := range items {
		style, err := marshalJSON(it.Style)
		if err != nil {
			return nil, err
		}
		metadata, err := marshalJSON(it.Metadata)
		if err != nil {
			return nil, err
		}
		it.CapsuleID = capsuleID
		it.Position = i
		if err := r.db.QueryRowContext(ctx, query,
			capsuleID, i, string(it.Kind), it.Content, it.Description, style, metadata,
		).Scan(&it.ID, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *PostgresRepository) AddParticipant(ctx context.Context, capsuleID, userID string) (bool, error) {
	query := `
		INSERT INTO capsule_participants (capsule_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, capsuleID, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ReplaceParticipants(ctx context.Context, capsuleID string, userIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capsule_participants WHERE capsule_id = $1`, capsuleID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, id := range userIDs {
		if _, err := r.AddParticipant(ctx, capsuleID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) AddEmail(ctx context.Context, capsuleID, email string) error {
	query := `
		INSERT INTO capsule_emails (capsule_id, email)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, capsuleID, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReplaceEmails(ctx context.Context, capsuleID string, emails []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capsule_emails WHERE capsule_id = $1`, capsuleID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, e := range emails {
		if err := r.AddEmail(ctx, capsuleID, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) DeleteContents(ctx context.Context, capsuleID string) error {
	for _, table := range []string{"capsule_items", "capsule_participants", "capsule_emails"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE capsule_id = $1`, capsuleID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM capsules WHERE id = $1`, id)
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
