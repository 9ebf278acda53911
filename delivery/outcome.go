package delivery

import (
	"bytes"
	"encoding/json"
)

// UnexpectedBehaviour is the message of every response that is neither a
// success nor a rejection with a reason.
const UnexpectedBehaviour = "Unexpected behaviour"

// OutcomeKind classifies a single attempt.
type OutcomeKind int

const (
	// Success means the service accepted the envelope.
	Success OutcomeKind = iota
	// ApplicationFailure means the service rejected it or the reply was not understood.
	ApplicationFailure
	// TransportFailure means no usable reply arrived.
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ApplicationFailure:
		return "application_failure"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

// IsSuccess reports whether the attempt succeeded.
func (o Outcome) IsSuccess() bool {
	return o.Kind == Success
}

// Accepted returns a Success outcome.
func Accepted() Outcome {
	return Outcome{Kind: Success}
}

// Rejected returns an ApplicationFailure carrying message.
func Rejected(message string) Outcome {
	return Outcome{Kind: ApplicationFailure, Message: message}
}

// Failed returns a TransportFailure wrapping err.
func Failed(err error) Outcome {
	o := Outcome{Kind: TransportFailure, Err: err}
	if err != nil {
		o.Message = err.Error()
	}
	return o
}

// serviceResponse holds the only members of a reply that are interpreted.
type serviceResponse struct {
	Status  json.RawMessage `json:"status"`
	Message json.RawMessage `json:"message"`
}

// Interpret classifies a raw service reply:
//
//   - "status" is true: Success.
//   - "status" is false and "message" is a non-empty string: ApplicationFailure(message).
//   - anything else, malformed JSON included: ApplicationFailure(UnexpectedBehaviour).
func Interpret(body []byte) Outcome {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Rejected(UnexpectedBehaviour)
	}

	var resp serviceResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return Rejected(UnexpectedBehaviour)
	}

	switch string(bytes.TrimSpace(resp.Status)) {
	case "true":
		return Accepted()
	case "false":
	default:
		return Rejected(UnexpectedBehaviour)
	}

	var message string
	if len(resp.Message) == 0 || json.Unmarshal(resp.Message, &message) != nil || message == "" {
		return Rejected(UnexpectedBehaviour)
	}
	return Rejected(message)
}
