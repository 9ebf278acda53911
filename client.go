package monger

import (
	"context"
	"fmt"
	"strings"

	"github.com/fnklabs/monger-go/config"
	"github.com/fnklabs/monger-go/delivery"
	"github.com/fnklabs/monger-go/httpclient"
	"github.com/fnklabs/monger-go/logger"
)

const headerUserAgent = "User-Agent"

type applicationInfo struct {
	name    string
	version string
}

// Client reports events to one Monger service. It is safe for concurrent use.
type Client struct {
	address  string
	app      applicationInfo
	pipeline *delivery.Pipeline
}

// New validates cfg and builds a Client that posts over HTTP.
func New(cfg config.Config, log logger.Logger, opts ...Option) (*Client, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("monger: %w", err)
	}
	o := collectOptions(opts)

	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	builder := httpclient.NewBuilder(log).
		WithTimeout(cfg.HTTP.Timeout).
		WithDefaultHeader(headerUserAgent, userAgent).
		WithRequestInterceptor(httpclient.NewCorrelationIDInterceptor()).
		WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
	if cfg.HTTP.LogPayloads {
		builder.WithPayloadLogging(cfg.HTTP.MaxPayloadLogBytes)
	}
	if o.httpClient != nil {
		builder.WithHTTPClient(o.httpClient)
	}
	if o.tracerProvider != nil {
		builder.WithTracing(o.tracerProvider)
	}

	return newClient(cfg, delivery.NewHTTPTransport(builder.Build()), log, o), nil
}

// NewWithTransport validates cfg and builds a Client that sends through transport.
// The HTTP section of cfg is validated but not used; start from config.Default().
func NewWithTransport(cfg config.Config, transport delivery.Transport, log logger.Logger, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("monger: transport cannot be nil")
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("monger: %w", err)
	}
	return newClient(cfg, transport, log, collectOptions(opts)), nil
}

func collectOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(cfg config.Config, transport delivery.Transport, log logger.Logger, o *options) *Client {
	identity := delivery.Identity{User: cfg.Service.UserToken, Token: cfg.Service.AccessToken}
	return &Client{
		address:  strings.TrimRight(cfg.Service.Address, "/"),
		app:      applicationInfo{name: cfg.App.Name, version: cfg.App.Version},
		pipeline: delivery.New(identity, transport, log, o.pipelineOptions()...),
	}
}

// ReportActivity records a customer action.
func (c *Client) ReportActivity(ctx context.Context, a Activity) {
	c.pipeline.Deliver(ctx, c.url(PathActivity), a.envelope(c.app))
}

// ReportNewCustomer records a customer registration.
func (c *Client) ReportNewCustomer(ctx context.Context, cu Customer) {
	c.pipeline.Deliver(ctx, c.url(PathCustomer), cu.envelope())
}

// ReportNewPayment records a payment.
func (c *Client) ReportNewPayment(ctx context.Context, p Payment) {
	c.pipeline.Deliver(ctx, c.url(PathPayment), p.envelope())
}

// Address returns the service base address without a trailing slash.
func (c *Client) Address() string {
	return c.address
}

func (c *Client) url(path string) string {
	return c.address + path
}
