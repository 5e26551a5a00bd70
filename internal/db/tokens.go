package db

import (
	"context"
	"time"

	"github.com/authgate/backend/internal/model"
	"github.com/google/uuid"
)

func (db *Postgres) CreateRefreshToken(ctx context.Context, userID int64, expiresAt time.Time) (*model.RefreshTokenRecord, error) {
	query := `
		INSERT INTO refresh_tokens (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, expires_at, created_at
	`
	var record model.RefreshTokenRecord
	err := db.Pool.QueryRow(ctx, query, uuid.NewString(), userID, expiresAt).Scan(
		&record.ID,
		&record.UserID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (db *Postgres) GetRefreshTokenByID(ctx context.Context, tokenID string) (*model.RefreshTokenRecord, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1
	`
	var record model.RefreshTokenRecord
	err := db.Pool.QueryRow(ctx, query, tokenID).Scan(
		&record.ID,
		&record.UserID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteRefreshToken removes the record and reports whether it existed, so
// callers can treat "already gone" differently from a storage failure.
func (db *Postgres) DeleteRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (db *Postgres) DeleteRefreshTokensByUser(ctx context.Context, userID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}
