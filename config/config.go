// Package config loads and validates the client configuration.
//
// Sources are layered, later ones winning:
//  1. built-in defaults
//  2. an optional YAML file
//  3. environment variables prefixed with MONGER_ (MONGER_SERVICE_ADDRESS -> service.address)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "MONGER_"

	// DefaultUserAgent identifies this client to the service
	DefaultUserAgent = "Monger go client"
)

type loadOptions struct {
	file     string
	optional bool
	env      bool
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithFile loads the YAML file at path; a missing file is an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
		o.optional = false
	}
}

// WithOptionalFile loads the YAML file at path when it exists.
func WithOptionalFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
		o.optional = true
	}
}

// WithoutEnv skips environment variables.
func WithoutEnv() LoadOption {
	return func(o *loadOptions) {
		o.env = false
	}
}

// Load builds a validated Config from defaults, an optional YAML file and the environment.
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{env: true}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			if !o.optional || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", o.file, err)
			}
		}
	}

	if o.env {
		if err := k.Load(envprovider.Provider(".", envprovider.Opt{
			Prefix:        EnvPrefix,
			TransformFunc: envKey,
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	return unmarshal(k)
}

// LoadBytes builds a validated Config from defaults overlaid with a YAML document.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return unmarshal(k)
}

// Default returns the built-in defaults. The result is not validated: the
// service address and tokens still have to be filled in.
func Default() Config {
	k := koanf.New(".")
	var cfg Config
	if err := loadDefaults(k); err != nil {
		return cfg
	}
	_ = k.Unmarshal("", &cfg)
	return cfg
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts MONGER_HTTP_TIMEOUT into http.timeout
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"service.address":     "",
		"service.usertoken":   "",
		"service.accesstoken": "",

		"app.name":    "",
		"app.version": "",

		"http.timeout":            "10s",
		"http.useragent":          DefaultUserAgent,
		"http.logpayloads":        false,
		"http.maxpayloadlogbytes": 1024,
		"http.ratelimit":          0,
		"http.rateburst":          1,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":  false,
		"observability.endpoint": "stdout",
		"observability.protocol": "http",
		"observability.insecure": false,
		"observability.interval": "15s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
