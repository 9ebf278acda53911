package config

import "time"

// Config is the construction-time configuration of a Monger client.
// It is a plain value: the client copies it and never changes it afterwards.
type Config struct {
	Service       ServiceConfig       `koanf:"service" json:"service" yaml:"service"`
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	HTTP          HTTPConfig          `koanf:"http" json:"http" yaml:"http"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`
}

// ServiceConfig locates the Monger service and identifies the caller to it.
type ServiceConfig struct {
	// Address is the service base address, e.g. https://monger.example.com
	Address     string `koanf:"address" json:"address" yaml:"address" validate:"required,url"`
	UserToken   string `koanf:"usertoken" json:"usertoken" yaml:"usertoken" validate:"required"`
	AccessToken string `koanf:"accesstoken" json:"-" yaml:"accesstoken" validate:"required"`
}

// AppConfig names the reporting application; sent with every activity event.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
}

// HTTPConfig tunes the outbound transport.
type HTTPConfig struct {
	Timeout   time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	UserAgent string        `koanf:"useragent" json:"useragent" yaml:"useragent"`
	// LogPayloads enables debug-level logging of request and response bodies
	LogPayloads bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`
	// MaxPayloadLogBytes caps the body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" validate:"gte=0"`
	// RateLimit is the maximum requests per second; 0 disables limiting
	RateLimit float64 `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit" validate:"gte=0"`
	RateBurst int     `koanf:"rateburst" json:"rateburst" yaml:"rateburst" validate:"gte=1"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// ObservabilityConfig controls OpenTelemetry export of delivery metrics and spans.
type ObservabilityConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Endpoint is "stdout" or an OTLP collector host:port
	Endpoint string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	Protocol string        `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"oneof=http grpc"`
	Insecure bool          `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" validate:"gt=0"`
}
