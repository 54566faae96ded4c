package moonraker

import (
	"fmt"
	"net/http"
)

// Outcome classifies what happened to a request.
type Outcome int

const (
	// OutcomeSuccess is any 2xx response.
	OutcomeSuccess Outcome = iota
	// OutcomeApplicationError is a 400: the host received the request and
	// rejected it with a message for the user. It is never retried.
	OutcomeApplicationError
	// OutcomeRetryable is a transport failure, 5xx or 408 on a single attempt.
	// Execute turns it into OutcomeAbandoned once attempts run out.
	OutcomeRetryable
	// OutcomeAbandoned means the request was given up on.
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeApplicationError:
		return "application_error"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the final word on one Execute call.
type Result struct {
	Outcome    Outcome
	Body       string
	StatusCode int // zero when no response arrived
	Message    string
	Attempts   int
	Err        error
}

// Succeeded reports whether the host received and handled the request.
// An application error counts: the command was delivered.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomeApplicationError
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s after %d attempt(s): %v", r.Outcome, r.Attempts, r.Err)
	case r.Message != "":
		return fmt.Sprintf("%s (%d): %s", r.Outcome, r.StatusCode, r.Message)
	default:
		return fmt.Sprintf("%s (%d)", r.Outcome, r.StatusCode)
	}
}

// classifyStatus maps an HTTP status to an outcome for a single attempt.
func classifyStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code == http.StatusBadRequest:
		return OutcomeApplicationError
	case code >= 500 || code == http.StatusRequestTimeout:
		return OutcomeRetryable
	default:
		return OutcomeAbandoned
	}
}
