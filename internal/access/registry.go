package access

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownRole is returned for roles outside the declared enumeration.
	ErrUnknownRole = errors.New("access: unknown role")
	// ErrIncompleteRegistry is returned when the policy omits a declared role.
	ErrIncompleteRegistry = errors.New("access: role policy incomplete")
	// ErrInvalidPolicy is returned for malformed policy documents.
	ErrInvalidPolicy = errors.New("access: invalid role policy")
)

//go:embed roles.yaml
var defaultPolicy []byte

type policyDocument struct {
	Roles map[string][]string `yaml:"roles"`
}

// Registry maps every declared role to its permission set. It is immutable
// once built.
type Registry struct {
	sets map[Role]PermissionSet
}

// RoleGrant pairs a role with the permissions it confers.
type RoleGrant struct {
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
}

// LoadRegistry parses and validates a YAML role policy.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var doc policyDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return buildRegistry(doc.Roles)
}

// LoadRegistryFile loads a policy from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("access: open policy: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// DefaultRegistry returns the registry compiled from the embedded policy.
// It panics if the embedded policy is invalid, which can only happen at build time.
func DefaultRegistry() *Registry {
	reg, err := LoadRegistry(bytes.NewReader(defaultPolicy))
	if err != nil {
		panic(err)
	}
	return reg
}

func buildRegistry(raw map[string][]string) (*Registry, error) {
	sets := make(map[Role]PermissionSet, len(declaredRoles))
	var undeclared []string
	for name, perms := range raw {
		role, ok := ParseRole(name)
		if !ok {
			undeclared = append(undeclared, name)
			continue
		}
		if _, dup := sets[role]; dup {
			return nil, fmt.Errorf("%w: role %q listed twice", ErrInvalidPolicy, role)
		}
		parsed := make([]Permission, 0, len(perms))
		for _, p := range perms {
			perm, ok := ParsePermission(p)
			if !ok {
				return nil, fmt.Errorf("%w: role %q grants undeclared permission %q", ErrInvalidPolicy, role, p)
			}
			parsed = append(parsed, perm)
		}
		sets[role] = NewPermissionSet(parsed...)
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return nil, fmt.Errorf("%w: undeclared roles %s", ErrInvalidPolicy, strings.Join(undeclared, ", "))
	}
	var missing []string
	for _, role := range declaredRoles {
		if _, ok := sets[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteRegistry, strings.Join(missing, ", "))
	}
	return &Registry{sets: sets}, nil
}

// PermissionsFor returns the permission set for role.
func (r *Registry) PermissionsFor(role Role) (PermissionSet, error) {
	set, ok := r.sets[role]
	if !ok {
		return PermissionSet{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return set, nil
}

// IsKnownRole reports whether role has an entry.
func (r *Registry) IsKnownRole(role Role) bool {
	_, ok := r.sets[role]
	return ok
}

// Roles returns the declared roles in declaration order.
func (r *Registry) Roles() []Role {
	return AllRoles()
}

// Grants lists every role with its permission set, in declaration order.
func (r *Registry) Grants() []RoleGrant {
	grants := make([]RoleGrant, 0, len(declaredRoles))
	for _, role := range declaredRoles {
		grants = append(grants, RoleGrant{Role: role, Permissions: r.sets[role]})
	}
	return grants
}
