package types

// SuccessEnvelope wraps every 2xx body the storefront API returns.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error. Retryable tells checkout clients the
// same request may succeed later (gateway or database outage).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
