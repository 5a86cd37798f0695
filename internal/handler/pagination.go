package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
)

// listQuery reads q, role, currentPage and perPage. Values that do not
// parse fall back to the defaults instead of failing the request.
func listQuery(c echo.Context) repository.ListQuery {
	lq := repository.ListQuery{
		Q:       c.QueryParam("q"),
		Page:    queryInt(c, "currentPage", 1),
		PerPage: queryInt(c, "perPage", repository.DefaultPerPage),
	}
	if r, ok := model.ParseRole(c.QueryParam("role")); ok {
		lq.Role = r
	}
	return lq.Normalize()
}

func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return n
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("Invalid url param")
	}
	return id, nil
}

func page[T any](items []T, total int, lq repository.ListQuery) model.Page[T] {
	if items == nil {
		items = []T{}
	}
	return model.Page[T]{Total: total, CurrentPage: lq.Page, PerPage: lq.PerPage, Data: items}
}
