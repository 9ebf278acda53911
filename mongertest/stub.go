// Package mongertest provides a stand-in Monger service that records every
// envelope it receives and replies with scripted responses.
package mongertest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/trace"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

// Endpoints served by the stub.
const (
	PathActivity = "/api/user_event/new"
	PathCustomer = "/api/customer/new"
	PathPayment  = "/api/payments/new"
)

const serviceName = "monger-stub"

// Request is one envelope received by the stub.
type Request struct {
	Path       string
	Headers    nethttp.Header
	Envelope   map[string]any
	Raw        []byte
	ReceivedAt time.Time
}

// ID returns the envelope correlation id.
func (r Request) ID() string {
	id, _ := r.Envelope["id"].(string)
	return id
}

// Response is a scripted reply.
type Response struct {
	Status int
	Body   string
}

// Accept replies {"status": true}.
func Accept() Response {
	return Response{Status: nethttp.StatusOK, Body: `{"status":true}`}
}

// Reject replies {"status": false, "message": message}.
func Reject(message string) Response {
	body, _ := json.Marshal(map[string]any{"status": false, "message": message})
	return Response{Status: nethttp.StatusOK, Body: string(body)}
}

// Raw replies with an arbitrary status and body.
func Raw(status int, body string) Response {
	return Response{Status: status, Body: body}
}

// Option configures a Stub.
type Option func(*Stub)

// WithLogger logs every received envelope to log.
func WithLogger(log logger.Logger) Option {
	return func(s *Stub) {
		s.log = log
	}
}

// WithResponses replies with rs in order, then with the fallback.
func WithResponses(rs ...Response) Option {
	return func(s *Stub) {
		s.script = append(s.script, rs...)
	}
}

// WithFallback sets the reply used once the script is consumed. Defaults to Accept.
func WithFallback(r Response) Option {
	return func(s *Stub) {
		s.fallback = r
	}
}

// WithFailures rejects the first n requests.
func WithFailures(n int) Option {
	return func(s *Stub) {
		for range n {
			s.script = append(s.script, Reject("stub failure"))
		}
	}
}

// WithAccessToken rejects envelopes whose token differs from token.
func WithAccessToken(token string) Option {
	return func(s *Stub) {
		s.accessToken = token
	}
}

// WithTracerProvider records server spans with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Stub) {
		s.tracerProvider = tp
	}
}

// Stub is an echo-based Monger service double.
type Stub struct {
	echo           *echo.Echo
	log            logger.Logger
	accessToken    string
	tracerProvider trace.TracerProvider

	mu       sync.Mutex
	script   []Response
	fallback Response
	requests []Request
}

// NewStub creates a Stub serving the three event endpoints.
func NewStub(opts ...Option) *Stub {
	s := &Stub{
		log:      logger.Nop(),
		fallback: Accept(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if s.tracerProvider != nil {
		e.Use(otelecho.Middleware(serviceName, otelecho.WithTracerProvider(s.tracerProvider)))
	}
	e.Use(correlationContext(), requestLogger(s.log))

	for _, path := range []string{PathActivity, PathCustomer, PathPayment} {
		e.POST(path, s.handle)
	}
	s.echo = e
	return s
}

// ServeHTTP implements http.Handler.
func (s *Stub) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and blocks until Shutdown.
func (s *Stub) Start(addr string) error {
	s.log.Info().Str("address", addr).Msg("Starting Monger stub")
	err := s.echo.Start(addr)
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops a stub started with Start.
func (s *Stub) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Requests returns a copy of every received request in arrival order.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the received requests for path.
func (s *Stub) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Reset forgets received requests. The remaining script is kept.
func (s *Stub) Reset() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

func (s *Stub) handle(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(nethttp.StatusBadRequest, "unreadable body")
	}

	req := Request{
		Path:       c.Path(),
		Headers:    c.Request().Header.Clone(),
		Raw:        raw,
		ReceivedAt: time.Now(),
	}
	decodeErr := json.Unmarshal(raw, &req.Envelope)
	requestID, _ := correlation.IDFromContext(c.Request().Context())

	resp := s.record(req)
	switch {
	case decodeErr != nil:
		resp = Raw(nethttp.StatusBadRequest, `{"status":false,"message":"malformed envelope"}`)
	case s.accessToken != "" && req.Envelope["token"] != s.accessToken:
		resp = Reject("bad token")
	}

	s.log.Info().
		Str("path", req.Path).
		Str("id", req.ID()).
		Str("request_id", requestID).
		Int("status", resp.Status).
		Bytes("envelope", raw).
		Msg("Envelope received")

	return c.Blob(resp.Status, echo.MIMEApplicationJSON, []byte(resp.Body))
}

// record stores req and pops the next scripted response.
func (s *Stub) record(req Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.script) == 0 {
		return s.fallback
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next
}

// Server is a Stub listening on a local httptest server.
type Server struct {
	*Stub
	URL    string
	server *httptest.Server
}

// NewServer starts a Stub on a random local port.
func NewServer(opts ...Option) *Server {
	stub := NewStub(opts...)
	ts := httptest.NewServer(stub)
	return &Server{Stub: stub, URL: ts.URL, server: ts}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}
