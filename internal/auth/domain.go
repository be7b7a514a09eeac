package auth

import (
	"time"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Account represents the credential view of a profile.
type Account struct {
	ID           string
	FullName     string
	Role         shared.Role
	Department   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
