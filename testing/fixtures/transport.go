// Package fixtures provides pre-configured transports and service replies for
// tests of code that reports events.
package fixtures

import (
	"encoding/json"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/fnklabs/monger-go/testing/mocks"
)

// Caller identity used by tests
const (
	TestUserToken   = "USER_TOKEN"
	TestAccessToken = "USER_ACCESS_TOKEN_WITH_WRITE_SCOPE"
)

// Service replies
var (
	ReplySuccess   = []byte(`{"status":true}`)
	ReplyBadToken  = []byte(`{"status":false,"message":"bad token"}`)
	ReplyNoMessage = []byte(`{"status":false}`)
	ReplyEmpty     = []byte(`{}`)
	ReplyMalformed = []byte(`<html>502 Bad Gateway</html>`)
)

// ErrConnRefused is the transport error returned by unreachable transports.
var ErrConnRefused = errors.New("dial tcp 127.0.0.1:80: connect: connection refused")

// Rejection builds a {"status": false, "message": message} reply.
func Rejection(message string) []byte {
	reply, _ := json.Marshal(map[string]any{"status": false, "message": message})
	return reply
}

// NewAcceptingTransport accepts every envelope.
func NewAcceptingTransport() *mocks.MockTransport {
	m := mocks.NewMockTransport()
	m.ExpectPost(mock.Anything, ReplySuccess, nil)
	return m
}

// NewRejectingTransport rejects every envelope with message.
func NewRejectingTransport(message string) *mocks.MockTransport {
	m := mocks.NewMockTransport()
	m.ExpectPost(mock.Anything, Rejection(message), nil)
	return m
}

// NewUnreachableTransport fails every post with ErrConnRefused.
func NewUnreachableTransport() *mocks.MockTransport {
	m := mocks.NewMockTransport()
	m.ExpectPost(mock.Anything, nil, ErrConnRefused)
	return m
}

// NewFlakyTransport fails the first n posts, then accepts.
func NewFlakyTransport(n int) *mocks.MockTransport {
	m := mocks.NewMockTransport()
	for range n {
		m.ExpectPost(mock.Anything, nil, ErrConnRefused).Once()
	}
	m.ExpectPost(mock.Anything, ReplySuccess, nil)
	return m
}
