package enums

// AuthEventType enumerates identity state changes broadcast to subscribers.
type AuthEventType string

const (
	AuthEventSignedUp  AuthEventType = "signed_up"
	AuthEventSignedIn  AuthEventType = "signed_in"
	AuthEventSignedOut AuthEventType = "signed_out"
)

func (a AuthEventType) String() string {
	return string(a)
}
