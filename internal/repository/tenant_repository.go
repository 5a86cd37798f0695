// Package repository contains data access logic separated from HTTP handlers.
// This file holds the tenant queries. A tenant is the organizational scope a
// user may belong to; users reference it through users.tenant_id.
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

// TenantRepo encapsulates all database queries related to tenants.
type TenantRepo struct {
	db *sqlx.DB
}

// NewTenantRepo constructs a TenantRepo with the provided DB handle.
func NewTenantRepo(db *sqlx.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// Create inserts a tenant and fills in its ID and timestamps.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (name, address, created_at, updated_at) VALUES (?, ?, ?, ?)",
		t.Name, t.Address, now, now)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrTenantNotFound if no row is found.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.GetContext(ctx, &t,
		"SELECT id, name, address, created_at, updated_at FROM tenants WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// List returns a page of tenants ordered newest first and the total match
// count. Q matches against "name address".
func (r *TenantRepo) List(ctx context.Context, lq ListQuery) ([]model.Tenant, int, error) {
	cond, args := "", []any{}
	if lq.Q != "" {
		cond = " WHERE CONCAT(name, ' ', address) LIKE ?"
		args = append(args, likePattern(lq.Q))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tenants"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	out := []model.Tenant{}
	q := "SELECT id, name, address, created_at, updated_at FROM tenants" + cond + " ORDER BY id DESC LIMIT ? OFFSET ?"
	if err := r.db.SelectContext(ctx, &out, q, append(args, lq.Limit(), lq.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	return out, total, nil
}

// Update sets name and address of tenant id.
func (r *TenantRepo) Update(ctx context.Context, id uint64, name, address string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		name, address, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

// Delete removes tenant id. Members keep their accounts with tenant_id
// reset to NULL by the foreign key.
func (r *TenantRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTenantNotFound
	}
	return nil
}
