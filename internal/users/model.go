package users

import (
	"time"

	"docs-backend/internal/access"
)

// User is a registered account.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Role         access.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Identity returns the authorization view of the user.
func (u User) Identity() access.Identity {
	return access.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}
