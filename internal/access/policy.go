package access

// RequirementKind distinguishes the four guard variants.
type RequirementKind string

// Requirement kinds.
const (
	KindPermission RequirementKind = "permission"
	KindAny        RequirementKind = "any"
	KindAll        RequirementKind = "all"
	KindRole       RequirementKind = "role"
)

// Requirement is the declared precondition of a protected operation.
type Requirement struct {
	Kind        RequirementKind
	Permissions []Permission
	Roles       []Role
}

// NeedPermission requires a single permission.
func NeedPermission(p Permission) Requirement {
	return Requirement{Kind: KindPermission, Permissions: []Permission{p}}
}

// NeedAny requires at least one of perms. An empty list admits no one but admin.
func NeedAny(perms ...Permission) Requirement {
	return Requirement{Kind: KindAny, Permissions: dedupePermissions(perms)}
}

// NeedAll requires every one of perms.
func NeedAll(perms ...Permission) Requirement {
	return Requirement{Kind: KindAll, Permissions: dedupePermissions(perms)}
}

// NeedRole requires the caller's role to be literally one of roles.
func NeedRole(roles ...Role) Requirement {
	unique := make([]Role, 0, len(roles))
	seen := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		unique = append(unique, r)
	}
	return Requirement{Kind: KindRole, Roles: unique}
}

// Satisfies is the single authorization predicate. Admin passes every
// permission-kind requirement; role requirements test membership only.
func Satisfies(p Principal, req Requirement) bool {
	if req.Kind == KindRole {
		for _, r := range req.Roles {
			if p.Role == r {
				return true
			}
		}
		return false
	}
	if p.IsAdmin() {
		return true
	}
	switch req.Kind {
	case KindPermission:
		return len(req.Permissions) == 1 && p.Permissions.Has(req.Permissions[0])
	case KindAny:
		return p.Permissions.HasAny(req.Permissions...)
	case KindAll:
		return p.Permissions.HasAll(req.Permissions...)
	default:
		return false
	}
}

func dedupePermissions(perms []Permission) []Permission {
	unique := make([]Permission, 0, len(perms))
	seen := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}
