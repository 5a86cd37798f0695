package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/queue"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
)

// UserDirectory is the full user store used by the admin endpoints.
type UserDirectory interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, lq repository.ListQuery) ([]model.User, int, error)
	Update(ctx context.Context, id uint64, upd repository.UserUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves the ADMIN-only /users endpoints.
type UserHandler struct {
	Users      UserDirectory
	Events     EventPublisher
	Logger     *zap.Logger
	BcryptCost int
}

type createUserReq struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=8,maxbytes=72"`
	TenantID  *uint64 `json:"tenantId" validate:"required"`
}

type updateUserReq struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Role      string  `json:"role" validate:"required,oneof=ADMIN MANAGER CUSTOMER"`
	TenantID  *uint64 `json:"tenantId"`
}

var errUserMissing = badRequest("User does not exist.")

// Create adds a MANAGER bound to tenantId.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Users.Create(ctx, repository.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.RoleManager,
		TenantID:  req.TenantID,
	}, h.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return badRequest("Email already exists")
	case errors.Is(err, repository.ErrTenantNotFound):
		return errTenantMissing
	case err != nil:
		return internal(err)
	}

	h.Logger.Info("user created", zap.Uint64("user_id", id))
	h.Events.Publish(ctx, queue.AuthEvent{Type: queue.EventUserCreated, UserID: id, Email: req.Email, Role: model.RoleManager})
	return c.JSON(http.StatusCreated, idResp{ID: id})
}

// List supports ?q= (name or email), ?role=, ?currentPage= and ?perPage=.
func (h *UserHandler) List(c echo.Context) error {
	lq := listQuery(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, total, err := h.Users.List(ctx, lq)
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, page(users, total, lq))
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errUserMissing
	}
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Users.FindByID(ctx, id); errors.Is(err, repository.ErrUserNotFound) {
		return errUserMissing
	} else if err != nil {
		return internal(err)
	}

	err = h.Users.Update(ctx, id, repository.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.Role(req.Role),
		TenantID:  req.TenantID,
	})
	if errors.Is(err, repository.ErrTenantNotFound) {
		return errTenantMissing
	}
	if err != nil {
		return internal(err)
	}
	h.Logger.Info("user updated", zap.Uint64("user_id", id))
	return c.JSON(http.StatusOK, idResp{ID: id})
}

// Delete removes the account; its refresh records are dropped with it, so
// any session it had ends at the next refresh.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Delete(ctx, id); errors.Is(err, repository.ErrUserNotFound) {
		return errUserMissing
	} else if err != nil {
		return internal(err)
	}
	h.Logger.Info("user deleted", zap.Uint64("user_id", id))
	h.Events.Publish(ctx, queue.AuthEvent{Type: queue.EventUserDeleted, UserID: id})
	return c.JSON(http.StatusOK, idResp{ID: id})
}
