package model

import "time"

// Role is the closed set of roles a principal can hold. It is stored in
// `users.role` and carried in the `role` claim of every token.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// ParseRole converts a raw claim or query value into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// User represents a principal as stored in the `users` table.
// PasswordHash never leaves the service: it is tagged `json:"-"` so that
// any response built from a User omits it.
//
// Fields:
//
//	ID           – primary key identifier.
//	FirstName    – given name.
//	LastName     – family name.
//	Email        – unique email address (case-sensitive as stored).
//	PasswordHash – bcrypt hash of the password.
//	Role         – ADMIN, MANAGER or CUSTOMER.
//	TenantID     – owning tenant (nil when unassigned).
//	Tenant       – joined tenant row, populated by lookups that need it.
type User struct {
	ID           uint64    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	TenantID     *uint64   `db:"tenant_id" json:"-"`
	Tenant       *Tenant   `db:"-" json:"tenant"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// RefreshToken models a row in `refresh_tokens`. The row's id is the `id`
// claim embedded in the signed refresh token; deleting the row revokes the
// token.
type RefreshToken struct {
	ID        uint64    `db:"id"`
	UserID    uint64    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the record is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
