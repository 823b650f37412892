package model

import (
	"fmt"
	"strings"
)

// Permission is a kind from the permission catalog.
type Permission string

const (
	Read   Permission = "READ"
	Write  Permission = "WRITE"
	Delete Permission = "DELETE"
)

// AllPermissions lists the catalog in seed order.
var AllPermissions = []Permission{Read, Write, Delete}

// ParsePermission converts a catalog name, case-insensitively.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case Read, Write, Delete:
		return p, nil
	}
	return "", fmt.Errorf("unknown permission: %q", s)
}

// WithImplied returns p together with the permissions it implies.
// WRITE and DELETE always come with READ.
func (p Permission) WithImplied() []Permission {
	if p == Read {
		return []Permission{Read}
	}
	return []Permission{p, Read}
}

// rank orders permissions for link scoping: WRITE > DELETE > READ.
func (p Permission) rank() int {
	switch p {
	case Write:
		return 3
	case Delete:
		return 2
	case Read:
		return 1
	}
	return 0
}

// Strongest returns the most powerful permission in perms.
// An empty list yields READ.
func Strongest(perms []Permission) Permission {
	best := Read
	for _, p := range perms {
		if p.rank() > best.rank() {
			best = p
		}
	}
	return best
}
