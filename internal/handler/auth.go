package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/carrier"
	"github.com/iliyamo/tenant-auth-service/internal/metrics"
	"github.com/iliyamo/tenant-auth-service/internal/middleware"
	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/queue"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

// dbTimeout bounds every storage call a handler makes.
const dbTimeout = 5 * time.Second

// UserStore is the part of the user directory the auth flows read and write.
type UserStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// RefreshStore persists, rotates and revokes refresh records.
type RefreshStore interface {
	Persist(ctx context.Context, userID uint64, ttl time.Duration) (model.RefreshToken, error)
	Rotate(ctx context.Context, oldID, userID uint64, ttl time.Duration) (model.RefreshToken, error)
	Revoke(ctx context.Context, id uint64) error
}

// TokenMinter signs access and refresh tokens.
type TokenMinter interface {
	IssueAccess(sub string, role model.Role, tenant string) (string, error)
	IssueRefresh(sub string, role model.Role, recordID uint64) (string, error)
	RefreshTTL() time.Duration
}

// EventPublisher hands auth events to the broker. It never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent)
}

// AuthHandler bundles dependencies for the /auth endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     RefreshStore
	Issuer     TokenMinter
	Carrier    carrier.Carrier
	Events     EventPublisher
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	BcryptCost int

	dummyOnce sync.Once
	dummyHash string
}

type registerReq struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,maxbytes=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type idResp struct {
	ID uint64 `json:"id"`
}

// errBadCredentials covers both an unknown email and a wrong password.
var errBadCredentials = badRequest("Email or password does not match")

// Register creates a CUSTOMER, signs them in and returns 201 {id}.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	// client disconnects must not abort a half-done registration
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()

	id, err := h.Users.Create(ctx, repository.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.RoleCustomer,
	}, h.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		h.Metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		return badRequest("Email already exists")
	}
	if err != nil {
		return internal(err)
	}

	if err := h.startSession(ctx, c, id, model.RoleCustomer, ""); err != nil {
		// the account is only kept once its session exists
		if derr := h.Users.Delete(ctx, id); derr != nil {
			h.Logger.Error("remove user after failed session start", zap.Uint64("user_id", id), zap.Error(derr))
		}
		return internal(err)
	}

	h.Logger.Info("user registered", zap.Uint64("user_id", id))
	h.Metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	h.Events.Publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, UserID: id, Email: req.Email, Role: model.RoleCustomer})
	return c.JSON(http.StatusCreated, idResp{ID: id})
}

// Login checks credentials and starts a session; 200 {id}.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		h.compareDummy(req.Password)
		h.Metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return errBadCredentials
	}
	if err != nil {
		return internal(err)
	}
	if !utils.VerifyPassword(user.PasswordHash, req.Password) {
		h.Metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return errBadCredentials
	}

	if err := h.startSession(ctx, c, user.ID, user.Role, tenantClaim(user)); err != nil {
		return internal(err)
	}

	h.Logger.Info("user logged in", zap.Uint64("user_id", user.ID))
	h.Metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	h.Events.Publish(ctx, queue.AuthEvent{Type: queue.EventUserLoggedIn, UserID: user.ID, Role: user.Role})
	return c.JSON(http.StatusOK, idResp{ID: user.ID})
}

// Self returns the caller's profile with the tenant embedded.
func (h *AuthHandler) Self(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, err := h.Users.FindByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		// token outlived its account
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Refresh rotates the presented refresh token: its record is replaced by a
// new one and both cookies are re-issued. The access token reflects the
// account's current role and tenant, not the ones it was first issued with.
func (h *AuthHandler) Refresh(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.RecordID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()

	user, err := h.Users.FindByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return internal(err)
	}

	sub := strconv.FormatUint(user.ID, 10)
	access, err := h.Issuer.IssueAccess(sub, user.Role, tenantClaim(user))
	if err != nil {
		return internal(err)
	}

	rec, err := h.Tokens.Rotate(ctx, id.RecordID, user.ID, h.Issuer.RefreshTTL())
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		// a concurrent refresh or logout consumed the record first
		h.Metrics.AuthAttemptsTotal.WithLabelValues("refresh", "failure").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return internal(err)
	}
	refresh, err := h.signRefresh(ctx, sub, user.Role, rec)
	if err != nil {
		return internal(err)
	}

	h.Carrier.SetTokens(c.Response(), access, refresh)
	h.Metrics.AuthAttemptsTotal.WithLabelValues("refresh", "success").Inc()
	return c.JSON(http.StatusOK, idResp{ID: user.ID})
}

// Logout revokes the record named by the refresh cookie and clears both
// cookies. The gate has already checked that the refresh token belongs to
// the access token's subject.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.RecordID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, id.RecordID); err != nil {
		return internal(err)
	}
	h.Carrier.Clear(c.Response())

	h.Logger.Info("user logged out", zap.Uint64("user_id", id.UserID), zap.Uint64("record_id", id.RecordID))
	h.Events.Publish(ctx, queue.AuthEvent{Type: queue.EventUserLoggedOut, UserID: id.UserID, Role: id.Role})
	return c.JSON(http.StatusOK, idResp{ID: id.UserID})
}

// startSession issues an access token, persists a refresh record, signs the
// refresh token and sets both cookies. Nothing is written to the response
// unless every step succeeded.
func (h *AuthHandler) startSession(ctx context.Context, c echo.Context, userID uint64, role model.Role, tenant string) error {
	sub := strconv.FormatUint(userID, 10)
	access, err := h.Issuer.IssueAccess(sub, role, tenant)
	if err != nil {
		return err
	}
	rec, err := h.Tokens.Persist(ctx, userID, h.Issuer.RefreshTTL())
	if err != nil {
		return err
	}
	refresh, err := h.signRefresh(ctx, sub, role, rec)
	if err != nil {
		return err
	}
	h.Carrier.SetTokens(c.Response(), access, refresh)
	return nil
}

// signRefresh signs a token for rec, revoking rec if signing fails so no
// record exists without a token.
func (h *AuthHandler) signRefresh(ctx context.Context, sub string, role model.Role, rec model.RefreshToken) (string, error) {
	refresh, err := h.Issuer.IssueRefresh(sub, role, rec.ID)
	if err == nil {
		return refresh, nil
	}
	if rerr := h.Tokens.Revoke(ctx, rec.ID); rerr != nil {
		h.Logger.Error("revoke orphaned refresh record", zap.Uint64("record_id", rec.ID), zap.Error(rerr))
	}
	return "", err
}

// compareDummy spends the same bcrypt work as a real password check, so an
// unknown email answers no faster than a wrong password.
func (h *AuthHandler) compareDummy(password string) {
	h.dummyOnce.Do(func() {
		hash, err := utils.HashPassword("unused-login-placeholder", h.BcryptCost)
		if err != nil {
			h.Logger.Warn("build placeholder hash", zap.Error(err))
			return
		}
		h.dummyHash = hash
	})
	utils.VerifyPassword(h.dummyHash, password)
}

func tenantClaim(u model.User) string {
	if u.TenantID == nil {
		return ""
	}
	return strconv.FormatUint(*u.TenantID, 10)
}
