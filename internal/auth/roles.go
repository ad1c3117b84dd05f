package auth

import (
	"fmt"
	"slices"
	"strings"

	"attendtrack/internal/apperr"
)

// Role is the capability class of a user. It never changes after creation.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTutor    Role = "tutor"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleTutor, RoleLecturer, RoleAdmin}

// ParseRole normalises s and checks it names a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Roles, r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Is reports whether the actor holds one of roles.
func (a Actor) Is(roles ...Role) bool {
	return slices.Contains(roles, a.Role)
}

// RequireRole returns a Forbidden error unless the actor holds one of allowed.
func RequireRole(actor Actor, allowed ...Role) error {
	if actor.UserID == "" {
		return apperr.Unauthorized("authentication required")
	}
	if actor.Is(allowed...) {
		return nil
	}
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return apperr.Forbidden("requires role " + strings.Join(names, " or "))
}

// RequireSelfOr allows the actor when it is userID or holds one of roles.
func RequireSelfOr(actor Actor, userID string, roles ...Role) error {
	if actor.UserID != "" && actor.UserID == userID {
		return nil
	}
	return RequireRole(actor, roles...)
}
