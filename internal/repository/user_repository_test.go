package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

var userCols = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role", "tenant_id", "created_at", "updated_at",
	"t_id", "t_name", "t_address", "t_created_at", "t_updated_at",
}

const insertUserQ = `(?s)^INSERT\s+INTO\s+users\s+\(first_name,.*\)\s+VALUES\s+\(\?,\?,\?,\?,\?,\?,\?,\?\)$`

func TestUserRepo_CreateHashesPassword(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	var storedHash string
	mock.ExpectExec(insertUserQ).
		WithArgs("Ada", "Lovelace", "ada@example.com", hashCapture{&storedHash}, "CUSTOMER", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := repo.Create(context.Background(), NewUser{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     " ada@example.com ",
		Password:  "secret-password",
		Role:      model.RoleCustomer,
	}, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NotEqual(t, "secret-password", storedHash)
	assert.True(t, utils.VerifyPassword(storedHash, "secret-password"))
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(insertUserQ).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'users.email'"})

	_, err := repo.Create(context.Background(), NewUser{Email: "ada@example.com", Password: "x", Role: model.RoleCustomer}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_CreateUnknownTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	tenantID := uint64(404)
	mock.ExpectExec(insertUserQ).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	_, err := repo.Create(context.Background(), NewUser{Email: "m@example.com", Password: "x", Role: model.RoleManager, TenantID: &tenantID}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestUserRepo_FindByEmailWithTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(`(?s)^SELECT\s+u\.id,.*FROM\s+users\s+u\s+LEFT\s+JOIN\s+tenants\s+t\s+ON\s+t\.id\s+=\s+u\.tenant_id\s+WHERE\s+u\.email=\?\s+LIMIT\s+1$`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "Ada", "Lovelace", "ada@example.com", "$2a$hash", "MANAGER", 9, now, now,
				9, "Acme", "1 Main St", now, now))

	u, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, model.RoleManager, u.Role)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
	require.NotNil(t, u.TenantID)
	assert.Equal(t, uint64(9), *u.TenantID)
	require.NotNil(t, u.Tenant)
	assert.Equal(t, "Acme", u.Tenant.Name)
}

func TestUserRepo_FindByIDWithoutTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(`(?s)^SELECT\s+u\.id,.*WHERE\s+u\.id=\?\s+LIMIT\s+1$`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "Ada", "Lovelace", "ada@example.com", "$2a$hash", "CUSTOMER", nil, now, now,
				nil, nil, nil, nil, nil))

	u, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, u.TenantID)
	assert.Nil(t, u.Tenant)
}

func TestUserRepo_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`(?s)^SELECT\s+u\.id,.*WHERE\s+u\.id=\?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.FindByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_ListFiltersAndPaginates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+u\s+WHERE\s+\(CONCAT\(u\.first_name, ' ', u\.last_name\)\s+LIKE\s+\?\s+OR\s+u\.email\s+LIKE\s+\?\)\s+AND\s+u\.role\s+=\s+\?$`).
		WithArgs("%ada\\_%", "%ada\\_%", "MANAGER").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`(?s)^SELECT\s+u\.id,.*ORDER\s+BY\s+u\.id\s+DESC\s+LIMIT\s+\?\s+OFFSET\s+\?$`).
		WithArgs("%ada\\_%", "%ada\\_%", "MANAGER", 5, 5).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(2, "Ada", "Byron", "ada_b@example.com", "h", "MANAGER", nil, now, now, nil, nil, nil, nil, nil))

	users, total, err := repo.List(context.Background(), ListQuery{Q: "ada_", Role: model.RoleManager, Page: 2, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Byron", users[0].LastName)
}

func TestUserRepo_ListNoFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+u$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)^SELECT\s+u\.id,.*LIMIT\s+\?\s+OFFSET\s+\?$`).
		WithArgs(DefaultPerPage, 0).
		WillReturnRows(sqlmock.NewRows(userCols))

	users, total, err := repo.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, users)
}

func TestUserRepo_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	tenantID := uint64(4)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+first_name=\?,\s*last_name=\?,\s*role=\?,\s*tenant_id=\?,\s*updated_at=\?\s+WHERE\s+id=\?$`).
		WithArgs("Grace", "Hopper", "ADMIN", 4, sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), 3, UserUpdate{FirstName: "Grace", LastName: "Hopper", Role: model.RoleAdmin, TenantID: &tenantID})
	require.NoError(t, err)
}

func TestUserRepo_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id=\?$`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3), ErrUserNotFound)
}

// hashCapture records the argument it is matched against.
type hashCapture struct{ dst *string }

func (h hashCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*h.dst = s
	}
	return ok
}
