package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

// NewUser carries the fields needed to create a principal. Password is
// plaintext; Create hashes it before it reaches the database.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
	TenantID  *uint64
}

// UserUpdate lists the mutable columns of a user. Email and password are
// not updatable through this path.
type UserUpdate struct {
	FirstName string
	LastName  string
	Role      model.Role
	TenantID  *uint64
}

// UserRepo is the user directory backed by the `users` table.
type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role, u.tenant_id, u.created_at, u.updated_at,
	t.id AS t_id, t.name AS t_name, t.address AS t_address, t.created_at AS t_created_at, t.updated_at AS t_updated_at`

// userRow is a user joined with its (optional) tenant.
type userRow struct {
	model.User
	TenantRowID     sql.NullInt64  `db:"t_id"`
	TenantName      sql.NullString `db:"t_name"`
	TenantAddress   sql.NullString `db:"t_address"`
	TenantCreatedAt sql.NullTime   `db:"t_created_at"`
	TenantUpdatedAt sql.NullTime   `db:"t_updated_at"`
}

func (r userRow) toModel() model.User {
	u := r.User
	if r.TenantRowID.Valid {
		u.Tenant = &model.Tenant{
			ID:        uint64(r.TenantRowID.Int64),
			Name:      r.TenantName.String,
			Address:   r.TenantAddress.String,
			CreatedAt: r.TenantCreatedAt.Time,
			UpdatedAt: r.TenantUpdatedAt.Time,
		}
	}
	return u
}

// Create hashes the password and inserts the user, returning its ID.
// Email uniqueness is enforced by the unique index, so two concurrent
// inserts with the same email cannot both succeed.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		nu.FirstName, nu.LastName, strings.TrimSpace(nu.Email), hash, nu.Role, nu.TenantID, now, now)
	if err != nil {
		switch {
		case isMySQLError(err, mysqlDuplicateEntry):
			return 0, ErrEmailExists
		case isMySQLError(err, mysqlNoReferencedRow):
			return 0, ErrTenantNotFound
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return uint64(id), nil
}

// FindByEmail fetches a user by email, password hash included.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, "u.email=?", strings.TrimSpace(email))
}

// FindByID fetches a user by id with its tenant joined.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	return r.findOne(ctx, "u.id=?", id)
}

func (r *UserRepo) findOne(ctx context.Context, cond string, arg any) (model.User, error) {
	var row userRow
	q := "SELECT " + userColumns + " FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id WHERE " + cond + " LIMIT 1"
	if err := r.DB.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return row.toModel(), nil
}

// List returns one page of users ordered newest first plus the total number
// of matches. Q matches "first last" or email; Role filters exactly.
func (r *UserRepo) List(ctx context.Context, lq ListQuery) ([]model.User, int, error) {
	var (
		where []string
		args  []any
	)
	if lq.Q != "" {
		like := likePattern(lq.Q)
		where = append(where, "(CONCAT(u.first_name, ' ', u.last_name) LIKE ? OR u.email LIKE ?)")
		args = append(args, like, like)
	}
	if lq.Role != "" {
		where = append(where, "u.role = ?")
		args = append(args, lq.Role)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM users u"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var rows []userRow
	q := "SELECT " + userColumns + " FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id" + cond +
		" ORDER BY u.id DESC LIMIT ? OFFSET ?"
	if err := r.DB.SelectContext(ctx, &rows, q, append(args, lq.Limit(), lq.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, total, nil
}

// Update overwrites the mutable columns of user id.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, role=?, tenant_id=?, updated_at=? WHERE id=?",
		upd.FirstName, upd.LastName, upd.Role, upd.TenantID, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes user id. Its refresh records go with it (ON DELETE CASCADE).
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
