package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "directory.request_timeout"
	Message string // e.g., "must be greater than 0"
	Hint    string // e.g., "expected a duration such as 10s"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

// getValidator returns a validator that reports fields by their yaml names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	// Struct tag validation
	errs = append(errs, c.validateTags()...)
	// Cross-field validations
	errs = append(errs, c.validateCrossFields()...)

	return errs
}

func (c *Config) validateTags() []error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{ValidationError{Path: "config", Message: err.Error()}}
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Path:    trimRoot(fe.Namespace()),
			Message: describeTag(fe),
			Hint:    hintFor(fe.Tag()),
		})
	}
	return errs
}

func (c *Config) validateCrossFields() []error {
	var errs []error

	if c.Transport.ProxyEnabled && c.Transport.ProxyAddr == "" {
		errs = append(errs, ValidationError{
			Path:    "transport.proxy_addr",
			Message: "must be set when proxy_enabled is true",
			Hint:    "e.g. 127.0.0.1:9050",
		})
	}

	if c.Inspector.EnableHTTPS && c.Inspector.TLSCacheDir == "" {
		errs = append(errs, ValidationError{
			Path:    "inspector.tls_cache_dir",
			Message: "must be set when enable_https is true",
			Hint:    "certificates are cached between restarts",
		})
	}

	if c.Directory.DefaultHost != "" && strings.ContainsAny(c.Directory.DefaultHost, " \t\n") {
		errs = append(errs, ValidationError{
			Path:    "directory.default_host",
			Message: "must not contain whitespace",
		})
	}

	return errs
}

// trimRoot drops the leading "Config." segment from a validator namespace.
func trimRoot(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "must not be empty"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "hostname_port":
		return fmt.Sprintf("invalid host:port %q", fe.Value())
	case "filepath":
		return fmt.Sprintf("invalid file path %q", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func hintFor(tag string) string {
	switch tag {
	case "hostname_port":
		return "expected host:port, e.g. 127.0.0.1:8090 or :8090"
	case "gt":
		return "expected a positive duration such as 10s"
	default:
		return ""
	}
}
