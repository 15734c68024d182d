// Package repository implements MySQL persistence for the platform.
// Sentinel errors defined here let handlers map failures to HTTP status
// codes without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a looked-up row does not exist. Handlers
// translate it to 404 (or 401 for credential lookups).
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned on unique-key violations (email, slug, one
// vote per poll). Handlers translate it to 409.
var ErrDuplicate = errors.New("duplicate")

// ErrForbidden is returned when the caller does not own the resource it
// is mutating. Handlers translate it to 403.
var ErrForbidden = errors.New("forbidden")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error.
// The driver does not expose a typed error for it, so match code 1062.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
