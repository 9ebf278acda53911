package config

import (
	"fmt"
	"strings"
)

// ConfigError describes a configuration problem with actionable guidance.
// Messages are lowercase following Go conventions.
//
//nolint:revive // ConfigError reads better than Error at call sites outside the package
type ConfigError struct {
	Category string // "missing" or "invalid"
	Field    string // config path, e.g. "service.address"
	Message  string
	Action   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	return strings.Join(parts, " ")
}

// NewMissingFieldError creates an error for a required configuration field that is unset.
func NewMissingFieldError(field string) *ConfigError {
	return &ConfigError{
		Category: "missing",
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to the config file", EnvVar(field), field),
	}
}

// NewInvalidFieldError creates an error for a configuration value that fails validation.
func NewInvalidFieldError(field, message string) *ConfigError {
	return &ConfigError{
		Category: "invalid",
		Field:    field,
		Message:  message,
	}
}

// EnvVar returns the environment variable that sets the config path field.
func EnvVar(field string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, ".", "_"))
}
