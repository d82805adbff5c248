// Package access maps roles to capability sets.
package access

import "strings"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ParseRole normalizes a stored role name; unknown names resolve to RoleUser.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleModerator:
		return RoleModerator
	default:
		return RoleUser
	}
}

// ValidRole reports whether s names a known role exactly.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

type Capability uint8

const (
	CapRead Capability = iota
	CapWrite
	CapDelete
	CapManageUsers
	CapViewAnalytics
)

var capabilityNames = [...]string{
	CapRead:          "read",
	CapWrite:         "write",
	CapDelete:        "delete",
	CapManageUsers:   "manage_users",
	CapViewAnalytics: "view_analytics",
}

func (c Capability) String() string {
	if int(c) < len(capabilityNames) {
		return capabilityNames[c]
	}
	return "unknown"
}

// CapabilitySet is a bitset of capabilities.
type CapabilitySet uint8

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= 1 << c
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	return s&(1<<c) != 0
}

// Names lists the set members in declaration order.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for i, name := range capabilityNames {
		if s.Has(Capability(i)) {
			names = append(names, name)
		}
	}
	return names
}

var roleCapabilities = map[Role]CapabilitySet{
	RoleAdmin:     NewCapabilitySet(CapRead, CapWrite, CapDelete, CapManageUsers, CapViewAnalytics),
	RoleModerator: NewCapabilitySet(CapRead, CapWrite, CapViewAnalytics),
	RoleUser:      NewCapabilitySet(CapRead),
}

// CapabilitiesFor resolves the capability set of a role.
func CapabilitiesFor(role Role) CapabilitySet {
	return roleCapabilities[ParseRole(string(role))]
}

// Session is an authenticated principal with its capabilities resolved once.
type Session struct {
	UserID       int64
	Email        string
	Name         string
	Role         Role
	Capabilities CapabilitySet
}

func NewSession(userID int64, email, name, role string) Session {
	r := ParseRole(role)
	return Session{
		UserID:       userID,
		Email:        email,
		Name:         name,
		Role:         r,
		Capabilities: CapabilitiesFor(r),
	}
}

// HasCapability reports whether session may perform actions requiring c.
// A nil session has no capabilities.
func HasCapability(session *Session, c Capability) bool {
	if session == nil {
		return false
	}
	return session.Capabilities.Has(c)
}
