package models

import (
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a named role assigned to a user in the user_roles table.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleSimpleEnrollment Role = "inscricao_simples"
	RoleFullEnrollment   Role = "inscricao_completa"
	RoleViewer           Role = "visualizador"
	RoleFinance          Role = "financeiro"
	RoleClassManager     Role = "gestor_turmas"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdmin, RoleSimpleEnrollment, RoleFullEnrollment, RoleViewer, RoleFinance, RoleClassManager}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permission names an action or page a role set may access.
type Permission string

const (
	PermEnroll          Permission = "inscrever"
	PermViewDashboard   Permission = "view_dashboard"
	PermViewFinance     Permission = "view_financeiro"
	PermManageSchedules Permission = "manage_horarios"
	PermManageClasses   Permission = "manage_turmas"
	PermManageStudents  Permission = "manage_alunos"
	PermManageUsers     Permission = "manage_usuarios"
	PermSearch          Permission = "pesquisar"
	PermViewAudit       Permission = "view_auditoria"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermEnroll, PermViewDashboard, PermViewFinance, PermManageSchedules, PermManageClasses,
		PermManageStudents, PermManageUsers, PermSearch, PermViewAudit,
	},
	RoleSimpleEnrollment: {PermEnroll},
	RoleFullEnrollment:   {PermEnroll, PermManageStudents, PermViewDashboard, PermSearch},
	RoleViewer:           {PermViewDashboard, PermSearch},
	RoleFinance:          {PermViewFinance, PermViewDashboard},
	RoleClassManager:     {PermManageClasses, PermManageSchedules, PermViewDashboard},
}

// CanAccess reports whether any of roles grants permission. It depends only on its
// arguments and the static role table.
func CanAccess(roles []Role, permission Permission) bool {
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// PermissionsFor returns the sorted union of permissions granted by roles.
func PermissionsFor(roles []Role) []Permission {
	set := make(map[Permission]struct{})
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			set[p] = struct{}{}
		}
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Session is the authenticated caller, built from a verified token and the user's
// role rows. Handlers pass it explicitly to services that need the actor.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Roles  []Role `json:"roles"`
}

// CanAccess reports whether the session's roles grant permission.
func (s *Session) CanAccess(permission Permission) bool {
	if s == nil {
		return false
	}
	return CanAccess(s.Roles, permission)
}

// ActorID returns the user id, or nil for anonymous callers such as the public form.
func (s *Session) ActorID() *string {
	if s == nil || s.UserID == "" {
		return nil
	}
	id := s.UserID
	return &id
}

// AuthClaims is the subset of the auth provider's access token we rely on.
type AuthClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserProfile is a portal user as listed in user administration.
type UserProfile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Roles     []Role    `db:"-" json:"roles"`
}

// UserRole is one row of the user_roles table.
type UserRole struct {
	UserID string `db:"user_id" json:"user_id"`
	Role   Role   `db:"role" json:"role"`
}

// Actor is the session behind a request together with its origin, recorded on audit entries.
type Actor struct {
	Session   *Session
	IPAddress string
	UserAgent string
}

// UserID returns the acting user's id, or nil for anonymous requests.
func (a Actor) UserID() *string {
	return a.Session.ActorID()
}
