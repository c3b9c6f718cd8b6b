package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents a console authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below; anything else parses to RoleUnknown.
type Role string

const (
	RolePendingMerchant Role = "pending-merchant"
	RoleMerchant        Role = "merchant"
	RoleSupportStaff    Role = "support-staff"
	RoleSupportAdmin    Role = "support-admin"

	// RoleUnknown is never issued; it marks a value outside the declared set.
	RoleUnknown Role = ""
)

// ParseRole normalizes a raw role label. Unrecognized labels map to RoleUnknown.
func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RolePendingMerchant, RoleMerchant, RoleSupportStaff, RoleSupportAdmin:
		return r
	default:
		return RoleUnknown
	}
}

// Valid reports whether r is one of the four declared roles.
func (r Role) Valid() bool {
	return ParseRole(string(r)) != RoleUnknown
}

// IsStaff reports whether r may operate the support console and impersonate merchants.
func (r Role) IsStaff() bool {
	switch r {
	case RoleSupportStaff, RoleSupportAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

// ResolutionState describes how far identity resolution got for the current request.
type ResolutionState int

const (
	// ResolutionPending means the identity source has not answered yet.
	ResolutionPending ResolutionState = iota
	// ResolutionAbsent means the identity source answered with no identity.
	ResolutionAbsent
	// ResolutionResolved means an identity is available.
	ResolutionResolved
)

func (s ResolutionState) String() string {
	switch s {
	case ResolutionPending:
		return "pending"
	case ResolutionAbsent:
		return "absent"
	case ResolutionResolved:
		return "resolved"
	default:
		return "invalid"
	}
}

// Identity represents the authenticated principal returned by an identity source.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID     string // stable user identifier (e.g., sub)
	FirstName  string
	LastName   string
	Email      string
	Groups     []string
	Role       Role   // set by adapters that receive a role label directly
	MerchantID string // linked merchant account, empty for staff
	DemoActive bool
	ExpiresAt  time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	MerchantID string    `json:"merchant_id,omitempty"`
	DemoActive bool      `json:"demo_active,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsStaff returns true if the session belongs to support staff.
func (s Session) IsStaff() bool { return s.Role.IsStaff() }

// Resolution is the outcome of resolving the identity for a request.
// Session is only set when State is ResolutionResolved.
type Resolution struct {
	State   ResolutionState
	Session *Session
}

// Role returns the resolved role, or RoleUnknown when nothing is resolved.
func (r Resolution) Role() Role {
	if r.State != ResolutionResolved || r.Session == nil {
		return RoleUnknown
	}
	return r.Session.Role
}

// Pending returns a Resolution in the pending state.
func Pending() Resolution { return Resolution{State: ResolutionPending} }

// Absent returns a Resolution for a request without identity.
func Absent() Resolution { return Resolution{State: ResolutionAbsent} }

// Resolved returns a Resolution carrying sess.
func Resolved(sess *Session) Resolution {
	if sess == nil {
		return Absent()
	}
	return Resolution{State: ResolutionResolved, Session: sess}
}
