package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ClientError is returned by Client for every failed call.
type ClientError interface {
	error
	Type() ErrorType
}

// StatusError is a ClientError for a completed exchange with a non-2xx status.
type StatusError interface {
	ClientError
	StatusCode() int
	Body() []byte
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
)

// clientError carries every category. detail is the parenthesised suffix,
// e.g. "(status: 502)", and cause is appended and unwrapped when set.
type clientError struct {
	kind    ErrorType
	message string
	detail  string
	cause   error
}

func (e *clientError) Error() string {
	var prefix string
	switch e.kind {
	case HTTPError:
		prefix = "HTTP error"
	default:
		prefix = string(e.kind) + " error"
	}

	msg := prefix + ": " + e.message
	if e.detail != "" {
		msg += " (" + e.detail + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *clientError) Type() ErrorType { return e.kind }

func (e *clientError) Unwrap() error { return e.cause }

// statusError keeps the response of a non-2xx exchange.
type statusError struct {
	clientError
	statusCode int
	body       []byte
}

func (e *statusError) StatusCode() int { return e.statusCode }

func (e *statusError) Body() []byte { return e.body }

// NewNetworkError reports a failure to send the request or read the reply.
func NewNetworkError(message string, cause error) ClientError {
	return &clientError{kind: NetworkError, message: message, cause: cause}
}

// NewTimeoutError reports a call that exceeded timeout.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &clientError{kind: TimeoutError, message: message, detail: fmt.Sprintf("timeout: %v", timeout)}
}

// NewHTTPError reports a non-2xx reply. The body is kept for callers that
// interpret error payloads.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &statusError{
		clientError: clientError{kind: HTTPError, message: message, detail: fmt.Sprintf("status: %d", statusCode)},
		statusCode:  statusCode,
		body:        body,
	}
}

// NewValidationError reports a request rejected before sending.
func NewValidationError(message, field string) ClientError {
	e := &clientError{kind: ValidationError, message: message}
	if field != "" {
		e.detail = "field: " + field
	}
	return e
}

// NewInterceptorError reports a failing interceptor or limiter; stage names which.
func NewInterceptorError(message, stage string, cause error) ClientError {
	return &clientError{kind: InterceptorError, message: message, detail: "stage: " + stage, cause: cause}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() == statusCode
	}
	return false
}

// ResponseBody returns the non-empty reply body carried by a StatusError in err.
func ResponseBody(err error) ([]byte, bool) {
	var statusErr StatusError
	if errors.As(err, &statusErr) && len(statusErr.Body()) > 0 {
		return statusErr.Body(), true
	}
	return nil, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
