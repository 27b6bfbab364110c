package enums

import "fmt"

// MembershipStatus captures the lifecycle of a store membership.
// invited -> active is the only transition; removal deletes the row.
type MembershipStatus string

const (
	MembershipStatusInvited MembershipStatus = "invited"
	MembershipStatusActive  MembershipStatus = "active"
)

func (m MembershipStatus) String() string { return string(m) }

func (m MembershipStatus) IsValid() bool {
	switch m {
	case MembershipStatusInvited, MembershipStatusActive:
		return true
	}
	return false
}

// CanActivate reports whether a membership in this status may become active.
func (m MembershipStatus) CanActivate() bool {
	return m == MembershipStatusInvited
}

func ParseMembershipStatus(value string) (MembershipStatus, error) {
	if s := MembershipStatus(value); s.IsValid() {
		return s, nil
	}
	return "", fmt.Errorf("invalid membership status %q", value)
}
