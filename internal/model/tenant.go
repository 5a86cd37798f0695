package model

import "time"

// Tenant is an organizational scope a user may belong to. This struct
// corresponds to a row in the `tenants` table.
type Tenant struct {
	ID        uint64    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Page is a slice of list results together with the total match count.
type Page[T any] struct {
	Total       int `json:"total"`
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
	Data        []T `json:"data"`
}
