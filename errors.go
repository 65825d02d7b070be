package environ

import "fmt"

// MissingValueError is returned when a required field has no value in the
// environment and no default. Key is the fully derived lookup key that was
// probed, e.g. "APP_DB_HOST".
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Key)
}

// MissingSecretError is returned when a required field sourced from a secret
// provider (INI file or prefixed environment) has no value and no default.
// Key is the lookup key that was probed within the provider's namespace.
type MissingSecretError struct {
	Key string
}

func (e *MissingSecretError) Error() string {
	return fmt.Sprintf("required secret %q is not set", e.Key)
}
