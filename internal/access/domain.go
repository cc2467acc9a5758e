package access

import "strings"

// Role is a fixed category assigned to an identity.
type Role string

// Declared roles.
const (
	RoleDesigner      Role = "designer"
	RoleDeveloper     Role = "developer"
	RolePolicyMaker   Role = "policy_maker"
	RoleContractor    Role = "contractor"
	RoleManufacturer  Role = "manufacturer"
	RoleSubcontractor Role = "subcontractor"
	RoleSupplier      Role = "supplier"
	RoleOperator      Role = "operator"
	RoleAdmin         Role = "admin"
)

// Permission is a single named capability checked by a guard.
type Permission string

// Declared permissions.
const (
	PermRead      Permission = "read"
	PermSearch    Permission = "search"
	PermModify    Permission = "modify"
	PermAnalyze   Permission = "analyze"
	PermComment   Permission = "comment"
	PermDataInput Permission = "data_input"
)

var declaredRoles = []Role{
	RoleDesigner,
	RoleDeveloper,
	RolePolicyMaker,
	RoleContractor,
	RoleManufacturer,
	RoleSubcontractor,
	RoleSupplier,
	RoleOperator,
	RoleAdmin,
}

var declaredPermissions = []Permission{
	PermRead,
	PermSearch,
	PermModify,
	PermAnalyze,
	PermComment,
	PermDataInput,
}

// AllRoles returns the closed role enumeration in declaration order.
func AllRoles() []Role {
	out := make([]Role, len(declaredRoles))
	copy(out, declaredRoles)
	return out
}

// AllPermissions returns the closed permission enumeration in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, len(declaredPermissions))
	copy(out, declaredPermissions)
	return out
}

// ParseRole normalises raw input and reports whether it names a declared role.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.TrimSpace(strings.ToLower(raw)))
	for _, r := range declaredRoles {
		if r == candidate {
			return r, true
		}
	}
	return "", false
}

// ParsePermission normalises raw input and reports whether it names a declared permission.
func ParsePermission(raw string) (Permission, bool) {
	candidate := Permission(strings.TrimSpace(strings.ToLower(raw)))
	for _, p := range declaredPermissions {
		if p == candidate {
			return p, true
		}
	}
	return "", false
}

func (r Role) String() string { return string(r) }

func (p Permission) String() string { return string(p) }
