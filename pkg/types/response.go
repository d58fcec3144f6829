package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Reason is set for domain rejections
// such as BID_TOO_LOW so clients can branch without parsing messages.
type APIError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
