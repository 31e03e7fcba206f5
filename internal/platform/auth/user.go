package auth

import (
	"context"
	"strings"
)

// Role is the closed set of dashboard roles. Values outside the declared
// constants never grant anything.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdministrator
	RoleDoctor
	RoleAuxiliaryNurse
)

var roleNames = map[Role]string{
	RoleAdministrator:  "Administrator",
	RoleDoctor:         "Doctor",
	RoleAuxiliaryNurse: "AuxiliaryNurse",
}

// KnownRoles lists every role that can hold permissions, in a stable order.
func KnownRoles() []Role {
	return []Role{RoleAdministrator, RoleDoctor, RoleAuxiliaryNurse}
}

// ParseRole maps a role name to its Role. Matching is exact after trimming
// surrounding whitespace; anything unrecognized is RoleUnknown.
func ParseRole(s string) Role {
	s = strings.TrimSpace(s)
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleUnknown
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// IsKnown reports whether r is one of the declared roles.
func (r Role) IsKnown() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// User is the authenticated principal. It is created by the auth middleware
// and only read afterwards. Department is empty for roles whose scope is
// global or role-defined.
type User struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// HasDepartment reports whether the user is bound to a department.
func (u *User) HasDepartment() bool {
	return u != nil && u.Department != ""
}

// DisplayName returns "First Last", falling back to the user ID.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.ID
	}
	return name
}

type contextKey string

const userKey contextKey = "dashboard_user"

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, or nil when the request
// was not authenticated.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}
