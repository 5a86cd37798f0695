package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
)

// TenantStore is the persistence used by TenantHandler.
type TenantStore interface {
	Create(ctx context.Context, t *model.Tenant) error
	GetByID(ctx context.Context, id uint64) (*model.Tenant, error)
	List(ctx context.Context, lq repository.ListQuery) ([]model.Tenant, int, error)
	Update(ctx context.Context, id uint64, name, address string) error
	Delete(ctx context.Context, id uint64) error
}

// TenantHandler serves /tenants. Invalidate, when set, is called after
// every successful write so cached listings are dropped.
type TenantHandler struct {
	Tenants    TenantStore
	Logger     *zap.Logger
	Invalidate func(ctx context.Context)
}

type tenantReq struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"required,max=100"`
}

var errTenantMissing = badRequest("Tenant does not exist.")

func (h *TenantHandler) Create(c echo.Context) error {
	var req tenantReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t := &model.Tenant{Name: req.Name, Address: req.Address}
	if err := h.Tenants.Create(ctx, t); err != nil {
		return internal(err)
	}
	h.invalidate(ctx)
	h.Logger.Info("tenant created", zap.Uint64("tenant_id", t.ID))
	return c.JSON(http.StatusCreated, idResp{ID: t.ID})
}

// List is public and paginated: ?q=&currentPage=&perPage=.
func (h *TenantHandler) List(c echo.Context) error {
	lq := listQuery(c)
	lq.Role = ""
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Tenants.List(ctx, lq)
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, page(items, total, lq))
}

func (h *TenantHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return errTenantMissing
	}
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TenantHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req tenantReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	// MySQL reports 0 affected rows for a no-op update, so existence is
	// checked separately
	if _, err := h.Tenants.GetByID(ctx, id); errors.Is(err, repository.ErrTenantNotFound) {
		return errTenantMissing
	} else if err != nil {
		return internal(err)
	}
	if err := h.Tenants.Update(ctx, id, req.Name, req.Address); err != nil {
		return internal(err)
	}
	h.invalidate(ctx)
	h.Logger.Info("tenant updated", zap.Uint64("tenant_id", id))
	return c.JSON(http.StatusOK, idResp{ID: id})
}

func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Tenants.Delete(ctx, id); errors.Is(err, repository.ErrTenantNotFound) {
		return errTenantMissing
	} else if err != nil {
		return internal(err)
	}
	h.invalidate(ctx)
	h.Logger.Info("tenant deleted", zap.Uint64("tenant_id", id))
	return c.JSON(http.StatusOK, idResp{ID: id})
}

func (h *TenantHandler) invalidate(ctx context.Context) {
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
}
