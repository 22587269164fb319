package models

import (
	"sort"
	"strings"
)

// Role is a server-assigned authority.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// RoleSet is the parsed form of the server's role string.
type RoleSet map[Role]struct{}

// ParseRoles splits s on commas and whitespace. Tokens are matched exactly;
// unknown tokens are kept but grant nothing.
func ParseRoles(s string) RoleSet {
	set := RoleSet{}
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		set[Role(tok)] = struct{}{}
	}
	return set
}

// Has reports whether the set grants r. ROLE_ADMIN also grants ROLE_USER.
func (s RoleSet) Has(r Role) bool {
	if _, ok := s[r]; ok {
		return true
	}
	if r == RoleUser {
		_, ok := s[RoleAdmin]
		return ok
	}
	return false
}

// String renders the set in a stable, comma-separated order.
func (s RoleSet) String() string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
