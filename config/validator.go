package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the global validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	_ = validate.RegisterValidation("env", validateEnvironment)
	validate.RegisterStructValidation(validateLanes, Config{})
}

// ConfigError represents a validation error for a specific field.
type ConfigError struct {
	Field   string
	Message string
	Value   any
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of config errors.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// ValidateWithDetails performs validation and returns detailed errors.
func ValidateWithDetails(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	details := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, ConfigError{
			Field:   fe.Namespace(),
			Message: formatValidationError(fe),
			Value:   fe.Value(),
		})
	}
	return details
}

// formatValidationError converts validator.FieldError to a human-readable message.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "unique":
		return fmt.Sprintf("%s must be unique", strings.ToLower(fe.Param()))
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "env":
		return "must be one of [development staging production]"
	case "lane_ref":
		return fmt.Sprintf("references unknown lane %q", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// validateEnvironment is a custom validator for environment values.
func validateEnvironment(fl validator.FieldLevel) bool {
	return slices.Contains([]string{"development", "staging", "production"}, fl.Field().String())
}

// validateLanes checks that lane references point at configured lanes.
func validateLanes(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if name := cfg.Bus.DefaultLane; name != "" {
		if _, ok := cfg.Lane(name); !ok {
			sl.ReportError(name, "Bus.DefaultLane", "DefaultLane", "lane_ref", name)
		}
	}
	for i, l := range cfg.Lanes {
		if l.RedirectLane == "" {
			continue
		}
		if _, ok := cfg.Lane(l.RedirectLane); !ok || l.RedirectLane == l.Name {
			field := fmt.Sprintf("Lanes[%d].RedirectLane", i)
			sl.ReportError(l.RedirectLane, field, "RedirectLane", "lane_ref", l.RedirectLane)
		}
	}
}
