package access

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the policy table denies an operation.
var ErrForbidden = errors.New("forbidden")

// Role governs document visibility and mutation scope.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a raw role string.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", errors.New("role is invalid")
	}
	return role, nil
}

// Operation is a document operation subject to authorization.
type Operation string

const (
	OpList   Operation = "list"
	OpView   Operation = "view"
	OpCreate Operation = "create"
	OpMutate Operation = "mutate"
)

// Scope is the outcome of a policy lookup.
type Scope int

const (
	Deny Scope = iota
	OwnOnly
	Allow
)

func (s Scope) String() string {
	switch s {
	case Allow:
		return "allow"
	case OwnOnly:
		return "own"
	default:
		return "deny"
	}
}

// Viewers get global read visibility while editors only see what they own.
// Editors may mutate only their own documents; admins are the only role with
// blanket mutate rights. Viewers are read-only.
var policy = map[Role]map[Operation]Scope{
	RoleAdmin: {
		OpList:   Allow,
		OpView:   Allow,
		OpCreate: Allow,
		OpMutate: Allow,
	},
	RoleEditor: {
		OpList:   OwnOnly,
		OpView:   OwnOnly,
		OpCreate: Allow,
		OpMutate: OwnOnly,
	},
	RoleViewer: {
		OpList:   Allow,
		OpView:   Allow,
		OpCreate: Deny,
		OpMutate: Deny,
	},
}

// ScopeFor returns the scope granted to role for op. Unknown pairs are denied.
func ScopeFor(role Role, op Operation) Scope {
	ops, ok := policy[role]
	if !ok {
		return Deny
	}
	return ops[op]
}

// Identity is the authenticated caller.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CanListAll reports whether role sees every document rather than only its own.
func CanListAll(role Role) bool {
	return ScopeFor(role, OpList) == Allow
}

// CanView authorizes reading a document owned by ownerID.
func CanView(id Identity, ownerID string) error {
	return check(id, OpView, ownerID)
}

// CanMutate authorizes updating or deleting a document owned by ownerID.
func CanMutate(id Identity, ownerID string) error {
	return check(id, OpMutate, ownerID)
}

// CanCreate authorizes creating a new document.
func CanCreate(id Identity) error {
	if ScopeFor(id.Role, OpCreate) == Deny {
		return ErrForbidden
	}
	return nil
}

func check(id Identity, op Operation, ownerID string) error {
	switch ScopeFor(id.Role, op) {
	case Allow:
		return nil
	case OwnOnly:
		if id.ID != "" && id.ID == ownerID {
			return nil
		}
	}
	return ErrForbidden
}
