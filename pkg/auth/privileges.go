package auth

import "strings"

// Privilege is a named capability granted to a user
type Privilege string

const (
	PrivilegeRead    Privilege = "READ"
	PrivilegeEdit    Privilege = "EDIT"
	PrivilegeComment Privilege = "COMMENT"
	PrivilegePublish Privilege = "PUBLISH"
	PrivilegeAdmin   Privilege = "ADMIN"
)

// Privileges is the set of capabilities a user holds
type Privileges map[Privilege]struct{}

// NewPrivileges builds a privilege set from individual privileges
func NewPrivileges(privileges ...Privilege) Privileges {
	set := make(Privileges, len(privileges))
	for _, p := range privileges {
		set[p] = struct{}{}
	}
	return set
}

// ParsePrivileges builds a privilege set from a comma-separated claim value
func ParsePrivileges(raw string) Privileges {
	set := make(Privileges)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			set[Privilege(strings.ToUpper(part))] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the given privilege. Admins hold
// every privilege implicitly.
func (p Privileges) Has(privilege Privilege) bool {
	if _, ok := p[PrivilegeAdmin]; ok {
		return true
	}
	_, ok := p[privilege]
	return ok
}

// Strings returns the privileges as a sorted-insensitive string slice
func (p Privileges) Strings() []string {
	out := make([]string, 0, len(p))
	for priv := range p {
		out = append(out, string(priv))
	}
	return out
}
