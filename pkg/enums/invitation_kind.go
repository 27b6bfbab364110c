package enums

// InvitationKind selects which link an invitee receives.
type InvitationKind string

const (
	// InvitationKindStore is sent to an existing account and lands on join-store.
	InvitationKindStore InvitationKind = "store"
	// InvitationKindSignup is sent to an unknown address and lands on signup.
	InvitationKindSignup InvitationKind = "signup"
)

func (k InvitationKind) String() string {
	return string(k)
}

// InvitationKindFor picks the kind from the account existence check.
func InvitationKindFor(existingUser bool) InvitationKind {
	if existingUser {
		return InvitationKindStore
	}
	return InvitationKindSignup
}

// LandingPath is the web path the invitation link redirects to.
func (k InvitationKind) LandingPath() string {
	if k == InvitationKindStore {
		return "/join-store"
	}
	return "/signup"
}
