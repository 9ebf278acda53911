package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/fnklabs/monger-go/correlation"
)

// Client sends HTTP requests and reports failures as ClientError values.
type Client interface {
	Post(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request represents an HTTP request with all necessary data
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the client configuration
type Config struct {
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
}

// NewCorrelationIDInterceptor copies the correlation id from the request
// context into the X-Request-ID header unless the header is already set.
func NewCorrelationIDInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(correlation.HeaderXRequestID) != "" {
			return nil
		}
		if id, ok := correlation.IDFromContext(ctx); ok {
			req.Header.Set(correlation.HeaderXRequestID, id)
		}
		return nil
	}
}
