package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxPolicyExpressionLength bounds the configured CEL expression.
const maxPolicyExpressionLength = 1024

// RegisterCustomValidators registers approval-gate validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("channel_id", validateChannelID); err != nil {
		return fmt.Errorf("failed to register channel_id validator: %w", err)
	}
	if err := v.RegisterValidation("bot_token", validateBotToken); err != nil {
		return fmt.Errorf("failed to register bot_token validator: %w", err)
	}
	return nil
}

// validateChannelID validates a Slack channel ID: "C" (public) or "G"
// (private) followed by uppercase alphanumerics.
func validateChannelID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if len(id) < 2 {
		return false
	}
	if id[0] != 'C' && id[0] != 'G' {
		return false
	}
	for _, r := range id[1:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// validateBotToken validates the bot user OAuth token prefix.
func validateBotToken(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "xoxb-")
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validatePolicyExpression(); err != nil {
		return err
	}

	return c.validateTLSPairing()
}

// validatePolicyExpression bounds the expression size. Compilation
// errors surface later when the evaluator builds the program.
func (c *Config) validatePolicyExpression() error {
	if len(c.Policy.Expression) > maxPolicyExpressionLength {
		return fmt.Errorf("policy.expression exceeds %d characters", maxPolicyExpressionLength)
	}
	return nil
}

// validateTLSPairing ensures cert and key are set together.
func (c *Config) validateTLSPairing() error {
	hasCert := c.Server.TLSCert != ""
	hasKey := c.Server.TLSKey != ""
	if hasCert != hasKey {
		return errors.New("server: tls_cert and tls_key must be set together")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
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
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "channel_id":
		return fmt.Sprintf("%s must be a Slack channel ID (e.g. C0123456789)", field)
	case "bot_token":
		return fmt.Sprintf("%s must be a bot user OAuth token (xoxb-...)", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
