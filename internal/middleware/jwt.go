package middleware // reusable HTTP middleware for the auth service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-auth-service/internal/carrier"
	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

// errUnauthorized is the only rejection a gate produces. Callers cannot
// tell a missing token from a bad signature or a revoked record.
var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

// AccessVerifier checks access-token signatures and claims.
type AccessVerifier interface {
	ParseAccess(raw string) (*utils.Claims, error)
}

// RefreshVerifier checks refresh-token signatures and claims.
type RefreshVerifier interface {
	ParseRefresh(raw string) (*utils.Claims, error)
}

// RefreshLookup resolves the persisted record a refresh token points at.
type RefreshLookup interface {
	FindByID(ctx context.Context, id uint64) (model.RefreshToken, error)
}

// Authenticate admits requests that carry a valid access token in the
// accessToken cookie. The Authorization header is never consulted.
func Authenticate(v AccessVerifier, cr carrier.Carrier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := cr.AccessToken(c.Request())
			if raw == "" {
				return errUnauthorized
			}
			claims, err := v.ParseAccess(raw)
			if err != nil {
				return errUnauthorized
			}
			id, ok := identityOf(claims)
			if !ok {
				return errUnauthorized
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// AuthenticateRefresh admits requests whose refresh token verifies and whose
// backing record still exists, belongs to the token's subject and has not
// expired. Revocation takes effect on the very next request.
func AuthenticateRefresh(v RefreshVerifier, store RefreshLookup, cr carrier.Carrier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := parseRefresh(c, v, cr)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			rec, err := store.FindByID(ctx, id.RecordID)
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errUnauthorized
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}
			if rec.UserID != id.UserID || rec.Expired(time.Now()) {
				return errUnauthorized
			}

			setIdentity(c, id)
			return next(c)
		}
	}
}

// ParseRefresh only verifies the refresh token's signature and claims. It is
// meant for logout, which deletes the record anyway.
func ParseRefresh(v RefreshVerifier, cr carrier.Carrier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := parseRefresh(c, v, cr)
			if err != nil {
				return err
			}
			// an access gate earlier in the chain owns the identity
			if prev, ok := IdentityFrom(c); ok {
				if prev.UserID != id.UserID {
					return errUnauthorized
				}
				prev.RecordID = id.RecordID
				id = prev
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

func parseRefresh(c echo.Context, v RefreshVerifier, cr carrier.Carrier) (Identity, error) {
	raw := cr.RefreshToken(c.Request())
	if raw == "" {
		return Identity{}, errUnauthorized
	}
	claims, err := v.ParseRefresh(raw)
	if err != nil {
		return Identity{}, errUnauthorized
	}
	id, ok := identityOf(claims)
	if !ok {
		return Identity{}, errUnauthorized
	}
	return id, nil
}

// identityOf rejects subjects that are not user ids.
func identityOf(cl *utils.Claims) (Identity, bool) {
	uid, err := strconv.ParseUint(cl.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, false
	}
	return Identity{
		Subject:  cl.Subject,
		UserID:   uid,
		Role:     cl.Role,
		Tenant:   cl.Tenant,
		RecordID: cl.RecordID,
	}, true
}
