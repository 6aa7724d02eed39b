package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of portal roles. The zero value is anonymous.
type Role string

const (
	RoleAnonymous Role = ""
	RoleAuthority Role = "authority"
	RoleHolder    Role = "holder"
)

// ParseRole maps a role string reported by the authority onto a Role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "school", "authority", "issuer":
		return RoleAuthority, nil
	case "student", "holder":
		return RoleHolder, nil
	default:
		return RoleAnonymous, fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is a known, non-anonymous role.
func (r Role) Valid() bool {
	return r == RoleAuthority || r == RoleHolder
}

// ActorContext identifies who is performing an operation. It is passed
// explicitly to every service call.
type ActorContext struct {
	Role           Role
	Name           string
	Email          string
	AuthorityToken string
	SessionID      string
}

// Anonymous returns an actor with no session.
func Anonymous() ActorContext { return ActorContext{} }

// Authenticated reports whether the actor holds a role and an authority token.
func (a ActorContext) Authenticated() bool {
	return a.Role.Valid() && a.AuthorityToken != ""
}

// Identities returns the non-empty identity channels used for holder matching.
func (a ActorContext) Identities() []string {
	ids := make([]string, 0, 2)
	for _, v := range []string{a.Name, a.Email} {
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}

// Owns reports whether the record names this actor by name or email, ignoring case.
func (a ActorContext) Owns(d Diploma) bool {
	name := strings.TrimSpace(d.StudentName)
	email := strings.TrimSpace(d.StudentEmail)
	for _, id := range a.Identities() {
		if (name != "" && strings.EqualFold(name, id)) || (email != "" && strings.EqualFold(email, id)) {
			return true
		}
	}
	return false
}
