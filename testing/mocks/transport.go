// Package mocks provides testify-based mocks of the client's collaborators.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/fnklabs/monger-go/delivery"
)

// MockTransport is a testify mock of delivery.Transport that also records
// every request body it is given.
//
// Example usage:
//
//	transport := mocks.NewMockTransport()
//	transport.ExpectPost("https://x.test/api/payments/new", []byte(`{"status":true}`), nil).Once()
//	client, _ := monger.NewWithTransport(cfg, transport, nil)
//	client.ReportNewPayment(ctx, payment)
//	transport.AssertExpectations(t)
type MockTransport struct {
	mock.Mock

	mu     sync.Mutex
	bodies [][]byte
}

var _ delivery.Transport = (*MockTransport)(nil)

// NewMockTransport creates a MockTransport with no expectations.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Post implements delivery.Transport
func (m *MockTransport) Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	m.mu.Lock()
	m.bodies = append(m.bodies, append([]byte(nil), body...))
	m.mu.Unlock()

	arguments := m.Called(ctx, url, headers, body)

	var reply []byte
	if r := arguments.Get(0); r != nil {
		reply = r.([]byte)
	}
	return reply, arguments.Error(1)
}

// ExpectPost sets up a reply for posts to url (a string or a testify matcher).
func (m *MockTransport) ExpectPost(url any, reply []byte, err error) *mock.Call {
	return m.On("Post", mock.Anything, url, mock.Anything, mock.Anything).Return(reply, err)
}

// ExpectReplies queues replies for consecutive posts to any url.
func (m *MockTransport) ExpectReplies(replies ...[]byte) {
	for _, r := range replies {
		m.On("Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(r, nil).Once()
	}
}

// Bodies returns a copy of every body passed to Post, in call order.
func (m *MockTransport) Bodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.bodies))
	copy(out, m.bodies)
	return out
}
