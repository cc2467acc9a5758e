package access

import (
	"encoding/json"
	"sort"
)

// PermissionSet is an immutable set of permissions.
type PermissionSet struct {
	members map[Permission]struct{}
	sorted  []Permission
}

// NewPermissionSet builds a set from the given permissions, ignoring duplicates.
func NewPermissionSet(perms ...Permission) PermissionSet {
	members := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		members[p] = struct{}{}
	}
	sorted := make([]Permission, 0, len(members))
	for p := range members {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return PermissionSet{members: members, sorted: sorted}
}

// Has reports whether p is a member of the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.members[p]
	return ok
}

// HasAny reports whether the set intersects perms.
func (s PermissionSet) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set is a superset of perms.
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of members.
func (s PermissionSet) Len() int {
	return len(s.sorted)
}

// Slice returns a sorted copy of the members.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Strings returns the sorted members as plain strings.
func (s PermissionSet) Strings() []string {
	out := make([]string, len(s.sorted))
	for i, p := range s.sorted {
		out[i] = string(p)
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.sorted {
		if s.sorted[i] != other.sorted[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array; an empty set is [] rather than null.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a string array into the set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	perms := make([]Permission, len(raw))
	for i, r := range raw {
		perms[i] = Permission(r)
	}
	*s = NewPermissionSet(perms...)
	return nil
}
