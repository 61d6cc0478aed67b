package models

import (
	"time"
)

// Roles controlling feature visibility. The set is closed; the store
// rejects anything else.
const (
	RoleAdministrator = "Administrador"
	RoleAssistant     = "Assistente Administrativo"
	RoleTechnician    = "Técnico"
)

// ValidRoles defines allowed account roles
var ValidRoles = map[string]bool{
	RoleAdministrator: true,
	RoleAssistant:     true,
	RoleTechnician:    true,
}

// ProtectedUserID is the bootstrap Admin account, created automatically
// when the user table is empty. It can never be deleted.
const (
	ProtectedUserID       = 1
	ProtectedUserUsername = "Admin"
)

// User represents a system account. PasswordHash never leaves the
// repository layer in API responses.
type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Nome         string    `json:"nome" db:"nome"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"data_criacao"`
}

// AuthUser is the authenticated principal passed explicitly into every
// service call that needs an identity.
type AuthUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Nome     string `json:"nome"`
	Role     string `json:"role"`
}

// IsAdministrator reports whether the principal holds the admin role.
func (u AuthUser) IsAdministrator() bool {
	return u.Role == RoleAdministrator
}

// CanOperate reports whether the principal may run imports, generation
// and resets.
func (u AuthUser) CanOperate() bool {
	return u.Role == RoleAdministrator || u.Role == RoleAssistant
}
