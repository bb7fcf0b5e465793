package model

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCapturist Role = "CAPTURIST"
	RoleDirector  Role = "DIRECTOR"
	RoleAdmin     Role = "ADMIN"
	RoleSystems   Role = "SYSTEMS"
)

var Roles = []Role{RoleCapturist, RoleDirector, RoleAdmin, RoleSystems}

func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, role := range Roles {
		if role == candidate {
			return role, true
		}
	}
	return "", false
}

// Principal is the authenticated user acting on a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsCapturist() bool {
	return p.Role == RoleCapturist
}

func (p Principal) IsSystems() bool {
	return p.Role == RoleSystems
}

// IsElevated covers the roles allowed to adjust or override an approved settlement.
func (p Principal) IsElevated() bool {
	switch p.Role {
	case RoleDirector, RoleAdmin, RoleSystems:
		return true
	default:
		return false
	}
}

func (p Principal) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}
