package repository

import (
	"strings"

	"github.com/iliyamo/tenant-auth-service/internal/model"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 100
)

// ListQuery holds the search and paging parameters shared by list endpoints.
type ListQuery struct {
	Q       string
	Role    model.Role
	Page    int
	PerPage int
}

// Normalize clamps paging values into a usable range.
func (q ListQuery) Normalize() ListQuery {
	q.Q = strings.TrimSpace(q.Q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

func (q ListQuery) Limit() int { return q.Normalize().PerPage }

func (q ListQuery) Offset() int {
	n := q.Normalize()
	return (n.Page - 1) * n.PerPage
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring LIKE match with wildcards escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
