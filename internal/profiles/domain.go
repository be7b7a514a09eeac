package profiles

import (
	"errors"
	"time"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Profile represents a system user managed by an admin.
type Profile struct {
	ID           string
	FullName     string
	Role         shared.Role
	Department   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Departments splits the comma-separated department field into trimmed names.
func (p Profile) Departments() []string {
	return shared.SplitDepartments(p.Department)
}

var (
	// ErrNotFound indicates the profile does not exist.
	ErrNotFound = errors.New("profiles: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("profiles: invalid input")
)
