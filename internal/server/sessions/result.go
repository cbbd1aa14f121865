package sessions

// Status is the outward verdict of a handle operation.
type Status string

const (
	StatusGood Status = "Good"
	StatusBad  Status = "Bad"
)

// Reason tells failures apart so callers can react (show a captcha, ask the
// user to wait, ask for a new code).
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonCaptchaRequired  Reason = "captcha_required"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonInvalidCode      Reason = "invalid_code"
	ReasonTokenExpired     Reason = "token_expired"
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonSessionNotFound  Reason = "session_not_found"
	ReasonVendorError      Reason = "vendor_error"
)

// Result is what every handle operation returns instead of a vendor error.
type Result struct {
	Status  Status
	Reason  Reason
	Message string
	Data    map[string]any
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Status == StatusGood
}

func good(message string, data map[string]any) Result {
	return Result{Status: StatusGood, Message: message, Data: data}
}

func bad(reason Reason, message string, data map[string]any) Result {
	return Result{Status: StatusBad, Reason: reason, Message: message, Data: data}
}

// SessionNotFound is the result reported when no live handle exists for a login.
func SessionNotFound() Result {
	return bad(ReasonSessionNotFound, "session not found", nil)
}
