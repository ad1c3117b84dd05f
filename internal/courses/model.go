package courses

import (
	"time"

	"attendtrack/internal/auth"
)

// Course is a taught unit identified by a unique upper-case code.
type Course struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	DepartmentID *string   `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member links a user to a course. Role is copied from the user's account role.
type Member struct {
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Role      auth.Role `json:"role"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Filter narrows course listings.
type Filter struct {
	DepartmentID string
	Search       string
}
