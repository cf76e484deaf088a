package models

// Status is the phase of a login form submission.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Reason explains a failed submission.
type Reason string

const (
	ReasonValidation         Reason = "validation"
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonNetwork            Reason = "network"
	ReasonServer             Reason = "server"
	ReasonSession            Reason = "session"
	ReasonUnexpected         Reason = "unexpected"
)

var reasonMessages = map[Reason]string{
	ReasonValidation:         "Please correct the highlighted fields",
	ReasonInvalidCredentials: "Invalid email or password",
	ReasonNetwork:            "Authentication service is unreachable, please try again",
	ReasonServer:             "Authentication service failed, please try again",
	ReasonSession:            "Could not start your session, please try again",
	ReasonUnexpected:         "Something went wrong, please try again",
}

// Message returns the user-facing text for the reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return reasonMessages[ReasonUnexpected]
}

// SubmissionState is a snapshot of the login form state.
// swagger:model SubmissionState
type SubmissionState struct {
	// Current phase
	// example: failed
	Status Status `json:"status"`

	// Failure reason, set only when Status is failed
	// example: invalid_credentials
	Reason Reason `json:"reason,omitempty"`

	// User-facing error message
	// example: Invalid email or password
	Message string `json:"message,omitempty"`

	// Per-field validation errors
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// IdleState returns the initial state of a form.
func IdleState() SubmissionState {
	return SubmissionState{Status: StatusIdle}
}

// FailedState builds a failed state for the given reason.
func FailedState(reason Reason, fieldErrors map[string]string) SubmissionState {
	return SubmissionState{
		Status:      StatusFailed,
		Reason:      reason,
		Message:     reason.Message(),
		FieldErrors: fieldErrors,
	}
}
