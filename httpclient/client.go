package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged bodies when no explicit limit is configured
	DefaultMaxPayloadLogBytes = 1024
)

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	limiter              *rate.Limiter
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	callCount            int64
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         *Config
	logger         logger.Logger
	httpClient     *nethttp.Client
	limiter        *rate.Limiter
	tracerProvider trace.TracerProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
		},
		logger: log,
	}
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging enables debug logging of bodies capped at maxBytes (0 keeps the default cap)
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithRateLimit caps outbound requests at perSecond with the given burst. perSecond <= 0 disables it.
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	if perSecond <= 0 {
		b.limiter = nil
		return b
	}
	if burst < 1 {
		burst = 1
	}
	b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return b
}

// WithTracing wraps the transport with otelhttp client spans from tp
func (b *Builder) WithTracing(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithHTTPClient uses the given *http.Client; its transport and cookie jar are kept
// while the timeout is taken from the builder.
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.httpClient = c
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	hc := &nethttp.Client{}
	if b.httpClient != nil {
		clone := *b.httpClient
		hc = &clone
	}
	hc.Timeout = b.config.Timeout

	if b.tracerProvider != nil {
		base := hc.Transport
		if base == nil {
			base = nethttp.DefaultTransport
		}
		hc.Transport = otelhttp.NewTransport(base, otelhttp.WithTracerProvider(b.tracerProvider))
	}

	return &client{
		httpClient:           hc,
		logger:               b.logger,
		config:               b.config,
		limiter:              b.limiter,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
	}
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Do performs a single HTTP request. Non-2xx responses are returned together
// with an HTTP ClientError carrying the body.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewInterceptorError("rate limit wait failed", "rate_limit", err)
		}
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	requestID := correlation.EnsureID(ctx)

	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}
	c.logRequest(httpReq, req.Body, requestID)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.isTimeout(err) {
			return nil, NewTimeoutError("request timeout", c.config.Timeout)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
	if err != nil {
		return nil, err
	}
	c.logResponse(resp, requestID)

	if !IsSuccessStatus(resp.StatusCode) {
		return resp, NewHTTPError(
			"unexpected response status",
			resp.StatusCode,
			resp.Body,
		)
	}
	return resp, nil
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// applyHeaders applies default then request headers; request headers win
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// buildRequest constructs an *http.Request, applies headers, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader = nethttp.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request: "+err.Error(), "url")
	}

	c.applyHeaders(httpReq, req)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}
	return httpReq, nil
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
