package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-auth-service/internal/model"
)

// identityKey is the echo context key under which the authentication gate
// stores the caller's Identity.
const identityKey = "identity"

// Identity is what a verified token says about the caller. RecordID is only
// set by the refresh variants of the gate.
type Identity struct {
	Subject  string
	UserID   uint64
	Role     model.Role
	Tenant   string
	RecordID uint64
}

func setIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
	// kept for handlers and loggers that only need the raw values
	c.Set("user_id", id.Subject)
	c.Set("role", string(id.Role))
}

// IdentityFrom returns the identity stored by a gate earlier in the chain.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// subjectOf is used for log fields; "guest" when no gate ran.
func subjectOf(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return id.Subject
	}
	return "guest"
}
