package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers pdpd-specific validation rules.
// Must be called before validating PDPConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	// audit_output: validates "stdout" or "file://<absolute-path>"
	if err := v.RegisterValidation("audit_output", validateAuditOutput); err != nil {
		return fmt.Errorf("failed to register audit_output validator: %w", err)
	}
	return nil
}

// validateAuditOutput validates the audit output field.
// Valid values: "stdout" or "file://<absolute-path>"
func validateAuditOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()

	// "stdout" is always valid
	if output == "stdout" {
		return true
	}

	// "file://<path>" requires an absolute path
	if strings.HasPrefix(output, "file://") {
		path := strings.TrimPrefix(output, "file://")
		return path != "" && filepath.IsAbs(path)
	}

	return false
}

// Validate validates the PDPConfig using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *PDPConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validatePolicyDirs(); err != nil {
		return err
	}

	return nil
}

// validatePolicyDirs ensures at least one policy directory is configured:
// the PDP must never start with zero loaded roots and silently return
// NotApplicable forever without the operator knowing why.
func (c *PDPConfig) validatePolicyDirs() error {
	if len(c.Policy.Dirs) == 0 {
		return errors.New("policy.dirs: at least one policy directory is required")
	}
	seen := make(map[string]struct{}, len(c.Policy.Dirs))
	for _, dir := range c.Policy.Dirs {
		if _, dup := seen[dir]; dup {
			return fmt.Errorf("policy.dirs: duplicate directory %q", dir)
		}
		seen[dir] = struct{}{}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			msg := formatSingleValidationError(e)
			messages = append(messages, msg)
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "audit_output":
		return fmt.Sprintf("%s must be 'stdout' or 'file://<absolute-path>'", field)
	case "required_if":
		if cond := strings.Fields(e.Param()); len(cond) == 2 {
			parent := field[:strings.LastIndex(field, ".")+1]
			return fmt.Sprintf("%s is required when %s%s is %s", field, parent, cond[0], cond[1])
		}
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
