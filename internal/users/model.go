package users

import (
	"strings"
	"time"

	"attendtrack/internal/auth"
)

// User is an account of any role. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DepartmentID *string   `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name, falling back to the email address.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Department groups users and courses under a faculty.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Faculty   string    `json:"faculty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows ListUsers.
type ListFilter struct {
	Role         auth.Role
	DepartmentID string
	Search       string
}
