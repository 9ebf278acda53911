package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report koanf paths (service.address) rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg and returns every problem found as joined *ConfigError values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewMissingFieldError("config")
	}

	err := structValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, toConfigError(fe))
	}
	return errors.Join(errs...)
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required", "required_if":
		return NewMissingFieldError(field)
	case "url":
		return NewInvalidFieldError(field, fmt.Sprintf("%q is not an absolute url", fe.Value()))
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", ")))
	case "gt", "gte":
		return NewInvalidFieldError(field, fmt.Sprintf("must be %s %s", comparison(fe.Tag()), fe.Param()))
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}

func comparison(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}
