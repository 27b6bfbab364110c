package types

// SuccessEnvelope wraps every non-raw success body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the flat error body shared by every endpoint.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
