package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/tenant-auth-service/internal/model"
)

// TokenRepo persists refresh token records. A record's presence is what
// makes its refresh token usable: revocation is a hard delete.
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Persist inserts a record for userID expiring ttl from now.
func (r *TokenRepo) Persist(ctx context.Context, userID uint64, ttl time.Duration) (model.RefreshToken, error) {
	return persistRefresh(ctx, r.DB, userID, ttl)
}

// FindByID loads a record. ErrRefreshTokenNotFound means it was revoked or
// never existed.
func (r *TokenRepo) FindByID(ctx context.Context, id uint64) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.GetContext(ctx, &t,
		"SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id=? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrRefreshTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return t, nil
}

// Revoke deletes a record. Revoking an absent record is not an error.
func (r *TokenRepo) Revoke(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", id); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Rotate replaces record oldID with a fresh one for userID inside a single
// transaction. If oldID is already gone (revoked, or rotated by a
// concurrent request) nothing is inserted and ErrRefreshTokenNotFound is
// returned.
func (r *TokenRepo) Rotate(ctx context.Context, oldID, userID uint64, ttl time.Duration) (model.RefreshToken, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("begin rotate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=? AND user_id=?", oldID, userID)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("rotate delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("rotate delete: %w", err)
	}
	if n == 0 {
		return model.RefreshToken{}, ErrRefreshTokenNotFound
	}

	t, err := persistRefresh(ctx, tx, userID, ttl)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.RefreshToken{}, fmt.Errorf("commit rotate: %w", err)
	}
	return t, nil
}

// DeleteExpired removes every record whose expiry is at or before now.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func persistRefresh(ctx context.Context, ex sqlx.ExecerContext, userID uint64, ttl time.Duration) (model.RefreshToken, error) {
	now := time.Now().UTC().Truncate(time.Second)
	t := model.RefreshToken{UserID: userID, ExpiresAt: now.Add(ttl), CreatedAt: now}
	res, err := ex.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, expires_at, created_at) VALUES (?,?,?)",
		t.UserID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("persist refresh token: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("persist refresh token: %w", err)
	}
	t.ID = uint64(id)
	return t, nil
}
