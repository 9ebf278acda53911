package delivery

import (
	"context"
	"fmt"

	"github.com/fnklabs/monger-go/httpclient"
)

// Default request headers of the wire protocol.
const (
	HeaderContentType = "Content-type"
	HeaderAccept      = "Accept"
	ContentTypeJSON   = "application/json"
)

// Transport sends one POST and returns the raw reply body. An error means no
// reply usable for interpretation was received.
type Transport interface {
	Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error)

// Post calls f.
func (f TransportFunc) Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	return f(ctx, url, headers, body)
}

// DefaultHeaders returns a fresh copy of the headers sent with every envelope.
func DefaultHeaders() map[string]string {
	return map[string]string{
		HeaderContentType: ContentTypeJSON,
		HeaderAccept:      ContentTypeJSON,
	}
}

// HTTPTransport sends envelopes through an httpclient.Client.
type HTTPTransport struct {
	client httpclient.Client
}

// NewHTTPTransport wraps client.
func NewHTTPTransport(client httpclient.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// Post returns the reply body for 2xx responses and for non-2xx responses
// that carry a body, so the service's own status/message is interpreted.
func (t *HTTPTransport) Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	resp, err := t.client.Post(ctx, &httpclient.Request{
		URL:     url,
		Headers: headers,
		Body:    body,
	})
	if err == nil {
		return resp.Body, nil
	}

	if reply, ok := httpclient.ResponseBody(err); ok {
		return reply, nil
	}
	return nil, fmt.Errorf("post %s: %w", url, err)
}
