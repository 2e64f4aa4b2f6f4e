package models

import (
	"errors"
	"strings"
)

// Role is an ordered access level attached to a user.
type Role string

const (
	RoleAnonymous     Role = "ANONYMOUS"
	RoleAuthenticated Role = "AUTHENTICATED"
	RoleManager       Role = "MANAGER"
	RoleAdmin         Role = "ADMIN"
)

// ErrInvalidRole is returned by ParseRole for unknown names.
var ErrInvalidRole = errors.New("Invalid role")

var roleRank = map[Role]int{
	RoleAnonymous:     0,
	RoleAuthenticated: 1,
	RoleManager:       2,
	RoleAdmin:         3,
}

// ParseRole accepts a role name in any case, surrounding spaces ignored.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the position of r in the hierarchy, -1 for unknown roles.
func (r Role) Rank() int {
	if n, ok := roleRank[r]; ok {
		return n
	}
	return -1
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}

// CanTransition reports whether a user holding from may be moved to to.
// Only single-step promotions are allowed; keeping the same role is a no-op.
func CanTransition(from, to Role) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return to == from || to.Rank() == from.Rank()+1
}
