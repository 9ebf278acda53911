package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

const (
	testContentTypeHdr = "Content-Type"
	testJSONType       = "application/json"
	testAcceptHdr      = "Accept"
	testUserAgentHdr   = "User-Agent"
	testIntercepted    = "X-Intercepted"
	testCorrelationID  = "5f0c7d3e-9a51-4c52-8d1c-1b2d3e4f5a6b"
)

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

type roundTripperFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripperFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

func okHandler(body string) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set(testContentTypeHdr, testJSONType)
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(nil)

	assert.Equal(t, DefaultTimeout, b.config.Timeout)
	assert.Equal(t, DefaultMaxPayloadLogBytes, b.config.MaxPayloadLogBytes)
	assert.False(t, b.config.LogPayloads)
	assert.Empty(t, b.config.DefaultHeaders)
	assert.Nil(t, b.limiter)
	assert.NotNil(t, b.logger)

	c, ok := b.Build().(*client)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Nil(t, c.httpClient.Transport)
}

func TestBuilderOptions(t *testing.T) {
	t.Run("timeout and headers", func(t *testing.T) {
		b := NewBuilder(logger.Nop()).
			WithTimeout(2*time.Second).
			WithDefaultHeader(testAcceptHdr, testJSONType).
			WithDefaultHeader(testUserAgentHdr, "Monger go client")

		assert.Equal(t, 2*time.Second, b.config.Timeout)
		assert.Equal(t, testJSONType, b.config.DefaultHeaders[testAcceptHdr])
		assert.Equal(t, "Monger go client", b.config.DefaultHeaders[testUserAgentHdr])
	})

	t.Run("payload logging keeps default cap for zero", func(t *testing.T) {
		b := NewBuilder(logger.Nop()).WithPayloadLogging(0)
		assert.True(t, b.config.LogPayloads)
		assert.Equal(t, DefaultMaxPayloadLogBytes, b.config.MaxPayloadLogBytes)

		b = NewBuilder(logger.Nop()).WithPayloadLogging(16)
		assert.Equal(t, 16, b.config.MaxPayloadLogBytes)
	})

	t.Run("rate limit", func(t *testing.T) {
		b := NewBuilder(logger.Nop()).WithRateLimit(5, 0)
		require.NotNil(t, b.limiter)
		assert.Equal(t, 1, b.limiter.Burst())
		assert.InDelta(t, 5.0, float64(b.limiter.Limit()), 0.0001)

		b.WithRateLimit(0, 10)
		assert.Nil(t, b.limiter)
	})

	t.Run("custom http client keeps its transport", func(t *testing.T) {
		rt := roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return nil, errors.New("unused")
		})
		base := &nethttp.Client{Transport: rt, Timeout: time.Minute}

		c, ok := NewBuilder(logger.Nop()).
			WithTimeout(time.Second).
			WithHTTPClient(base).
			Build().(*client)
		require.True(t, ok)

		assert.NotNil(t, c.httpClient.Transport)
		assert.Equal(t, time.Second, c.httpClient.Timeout)
		assert.Equal(t, time.Minute, base.Timeout, "caller's client must not be mutated")
	})
}

func TestClientPostSendsBodyAndHeaders(t *testing.T) {
	var (
		gotMethod  string
		gotBody    string
		gotHeaders nethttp.Header
	)
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotMethod = r.Method
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		okHandler(`{"status":true}`)(w, r)
	}))

	c := NewBuilder(logger.Nop()).
		WithDefaultHeader(testUserAgentHdr, "Monger go client").
		WithDefaultHeader(testAcceptHdr, "text/plain").
		Build()

	resp, err := c.Post(context.Background(), &Request{
		URL:     server.URL + "/api/user_event/new",
		Headers: map[string]string{testAcceptHdr: testJSONType},
		Body:    []byte(`{"event":"signup"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, nethttp.MethodPost, gotMethod)
	assert.Equal(t, `{"event":"signup"}`, gotBody)
	assert.Equal(t, testJSONType, gotHeaders.Get(testContentTypeHdr))
	assert.Equal(t, testJSONType, gotHeaders.Get(testAcceptHdr), "request headers override defaults")
	assert.Equal(t, "Monger go client", gotHeaders.Get(testUserAgentHdr))

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":true}`, string(resp.Body))
	assert.Equal(t, testJSONType, resp.Headers.Get(testContentTypeHdr))
}

func TestClientRequestValidation(t *testing.T) {
	c := NewBuilder(logger.Nop()).Build()

	t.Run("nil request", func(t *testing.T) {
		_, err := c.Post(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ValidationError))
	})

	t.Run("empty url", func(t *testing.T) {
		_, err := c.Post(context.Background(), &Request{})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ValidationError))
	})

	t.Run("unparseable url", func(t *testing.T) {
		_, err := c.Post(context.Background(), &Request{URL: "http://[::1"})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ValidationError))
	})
}

func TestClientInterceptors(t *testing.T) {
	t.Run("request interceptor", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			assert.Equal(t, "intercepted", r.Header.Get(testIntercepted))
			w.WriteHeader(nethttp.StatusOK)
		}))

		c := NewBuilder(logger.Nop()).
			WithRequestInterceptor(func(_ context.Context, req *nethttp.Request) error {
				req.Header.Set(testIntercepted, "intercepted")
				return nil
			}).
			Build()

		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err)
	})

	t.Run("response interceptor", func(t *testing.T) {
		server := newIPv4TestServer(t, okHandler(""))

		called := false
		c := NewBuilder(logger.Nop()).
			WithResponseInterceptor(func(_ context.Context, _ *nethttp.Request, _ *nethttp.Response) error {
				called = true
				return nil
			}).
			Build()

		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("request interceptor error", func(t *testing.T) {
		server := newIPv4TestServer(t, okHandler(""))

		c := NewBuilder(logger.Nop()).
			WithRequestInterceptor(func(context.Context, *nethttp.Request) error {
				return fmt.Errorf("boom")
			}).
			Build()

		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, InterceptorError))
	})

	t.Run("response interceptor error", func(t *testing.T) {
		server := newIPv4TestServer(t, okHandler(""))

		c := NewBuilder(logger.Nop()).
			WithResponseInterceptor(func(context.Context, *nethttp.Request, *nethttp.Response) error {
				return fmt.Errorf("boom resp")
			}).
			Build()

		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, InterceptorError))
	})
}

func TestCorrelationIDInterceptor(t *testing.T) {
	var got atomic.Value
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		got.Store(r.Header.Get(correlation.HeaderXRequestID))
		w.WriteHeader(nethttp.StatusOK)
	}))

	c := NewBuilder(logger.Nop()).
		WithRequestInterceptor(NewCorrelationIDInterceptor()).
		Build()

	t.Run("copies id from context", func(t *testing.T) {
		ctx := correlation.WithID(context.Background(), testCorrelationID)
		_, err := c.Post(ctx, &Request{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, testCorrelationID, got.Load())
	})

	t.Run("explicit header wins", func(t *testing.T) {
		ctx := correlation.WithID(context.Background(), testCorrelationID)
		_, err := c.Post(ctx, &Request{
			URL:     server.URL,
			Headers: map[string]string{correlation.HeaderXRequestID: "explicit"},
		})
		require.NoError(t, err)
		assert.Equal(t, "explicit", got.Load())
	})

	t.Run("absent id leaves header empty", func(t *testing.T) {
		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "", got.Load())
	})
}

func TestClientErrorHandling(t *testing.T) {
	t.Run("HTTP error status keeps response", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			w.WriteHeader(nethttp.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":false,"message":"bad token"}`))
		}))

		c := NewBuilder(logger.Nop()).Build()
		resp, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, HTTPError))
		assert.True(t, IsHTTPStatusError(err, nethttp.StatusBadRequest))

		require.NotNil(t, resp)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, `{"status":false,"message":"bad token"}`, string(resp.Body))
	})

	t.Run("network error", func(t *testing.T) {
		rt := roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return nil, errors.New("connection refused")
		})
		c := NewBuilder(logger.Nop()).WithHTTPClient(&nethttp.Client{Transport: rt}).Build()

		_, err := c.Post(context.Background(), &Request{URL: "http://monger.test/api/customer/new"})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, NetworkError))
	})

	t.Run("timeout error", func(t *testing.T) {
		server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(nethttp.StatusOK)
		}))

		c := NewBuilder(logger.Nop()).WithTimeout(10 * time.Millisecond).Build()
		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, TimeoutError))
	})

	t.Run("cancelled context before rate limit wait", func(t *testing.T) {
		c := NewBuilder(logger.Nop()).WithRateLimit(0.001, 1).Build()
		server := newIPv4TestServer(t, okHandler(""))

		_, err := c.Post(context.Background(), &Request{URL: server.URL})
		require.NoError(t, err, "first request consumes the burst")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Post(ctx, &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, InterceptorError))
	})
}

func TestClientStats(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(nethttp.StatusOK)
	}))

	c := NewBuilder(logger.Nop()).Build()

	resp1, err := c.Post(context.Background(), &Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp1.Stats.CallCount)
	assert.GreaterOrEqual(t, resp1.Stats.ElapsedTime, 10*time.Millisecond)

	resp2, err := c.Post(context.Background(), &Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp2.Stats.CallCount)
}

func TestClientDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	}))

	c := NewBuilder(logger.Nop()).Build()
	_, err := c.Post(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientTracing(t *testing.T) {
	server := newIPv4TestServer(t, okHandler(""))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := NewBuilder(logger.Nop()).WithTracing(tp).Build()

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	_, err := c.Post(ctx, &Request{URL: server.URL})
	span.End()
	require.NoError(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, span.SpanContext().TraceID(), ended[0].SpanContext().TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), ended[0].Parent().SpanID())
}
