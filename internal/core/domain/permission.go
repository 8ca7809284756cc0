package domain

import (
	"fmt"
	"strings"
)

// Permission is one capability an API key can carry. Session holders always
// carry all three.
type Permission uint8

const (
	PermissionRead Permission = 1 << iota
	PermissionDeposit
	PermissionTransfer
)

// String returns the wire name of the permission.
func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionDeposit:
		return "deposit"
	case PermissionTransfer:
		return "transfer"
	}
	return fmt.Sprintf("unknown(%d)", p)
}

// PermissionSet is a bitmask of Permissions.
type PermissionSet uint8

// AllPermissions is the full capability set granted to session-token holders.
const AllPermissions = PermissionSet(PermissionRead | PermissionDeposit | PermissionTransfer)

// Has reports whether the set contains p.
func (s PermissionSet) Has(p Permission) bool {
	return s&PermissionSet(p) != 0
}

// With returns a copy of the set with p added.
func (s PermissionSet) With(p Permission) PermissionSet {
	return s | PermissionSet(p)
}

// Strings returns the wire names of the permissions in the set, in stable order.
func (s PermissionSet) Strings() []string {
	var out []string
	for _, p := range []Permission{PermissionRead, PermissionDeposit, PermissionTransfer} {
		if s.Has(p) {
			out = append(out, p.String())
		}
	}
	return out
}

// String returns the set as a comma-separated list, the form stored in postgres.
func (s PermissionSet) String() string {
	return strings.Join(s.Strings(), ",")
}

// ParsePermission maps a wire name to a Permission.
func ParsePermission(name string) (Permission, error) {
	switch name {
	case "read":
		return PermissionRead, nil
	case "deposit":
		return PermissionDeposit, nil
	case "transfer":
		return PermissionTransfer, nil
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// ParsePermissionSet parses a comma-separated list of permission names.
// The empty string parses to the empty set.
func ParsePermissionSet(raw string) (PermissionSet, error) {
	var set PermissionSet
	if raw == "" {
		return set, nil
	}
	for _, name := range strings.Split(raw, ",") {
		p, err := ParsePermission(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		set = set.With(p)
	}
	return set, nil
}
