// Package repository implements raw-SQL data access for the
// storefront. Sentinel errors defined here are shared by several
// repositories so that the service and handler layers can translate
// failure causes into precise HTTP responses without inspecting SQL
// errors themselves.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist or is
// not visible to the calling user. Handlers translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a
// uniqueness constraint (duplicate email, duplicate movie identity,
// duplicate cart item, duplicate payment session). Callers translate
// it into the matching business conflict.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot proceed
// because of dependent state, such as deleting a movie that still
// sits in a cart. Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
