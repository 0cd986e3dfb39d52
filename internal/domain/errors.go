package domain

import "fmt"

// ConfigurationError reports a malformed or missing configuration value.
// It is fatal at startup.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
