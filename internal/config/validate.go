package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validLogLevels are the levels accepted by the logging package.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values.
func Validate(c *Config) error {
	var errors []string

	if _, _, ok := splitRepo(c.Repository); !ok {
		errors = append(errors, ValidationError{
			Field:   "repository",
			Message: fmt.Sprintf("must be in the form owner/repo, got %q", c.Repository),
		}.Error())
	}

	if err := validateBaseURL(c.APIBaseURL); err != nil {
		errors = append(errors, err.Error())
	}

	if c.RequestTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{Field: "request_timeout_seconds", Message: "must be positive"}.Error())
	}

	if c.DownloadTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{Field: "download_timeout_seconds", Message: "must be positive"}.Error())
	}

	// The retry loop must make at least one attempt.
	if c.RetryAttempts < 1 {
		errors = append(errors, ValidationError{Field: "retry_attempts", Message: "must be at least 1"}.Error())
	}

	if c.RetryIntervalMillis < 0 {
		errors = append(errors, ValidationError{Field: "retry_interval_ms", Message: "must not be negative"}.Error())
	}

	if c.CheckIntervalMinutes <= 0 {
		errors = append(errors, ValidationError{Field: "check_interval_minutes", Message: "must be positive"}.Error())
	}

	if c.KeepVersions < 0 {
		errors = append(errors, ValidationError{Field: "keep_versions", Message: "must not be negative"}.Error())
	}

	if !isValidLogLevel(c.LogLevel) {
		errors = append(errors, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid level '%s' (must be %s)", c.LogLevel, strings.Join(validLogLevels, ", ")),
		}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   "api_base_url",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", raw),
		}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}
