// Package environment provides helpers for loading configuration from
// environment variables.
//
// The *Or helpers read a variable and fall back to a default when it is unset
// or unparsable. The Override* helpers write into an existing value only when
// the variable is set, which lets environment variables take precedence over
// values loaded from a configuration file.
package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StringOr returns the value of the named environment variable, or
// defaultValue if the variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// RequiredString returns the value of the named environment variable or an
// error if it is unset or empty.
func RequiredString(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("required environment variable %q is not set", name)
	}
	return v, nil
}

// IntOr parses the named environment variable as a decimal integer. Returns
// defaultValue if the variable is unset, empty, or cannot be parsed.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// DurationOr parses the named environment variable as a time.Duration (e.g.
// "30s", "5m"). Returns defaultValue if the variable is unset, empty, or
// cannot be parsed.
func DurationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// StringSliceOr parses the named environment variable as a comma-separated
// list, trimming whitespace and dropping empty elements. Returns defaultValue
// if the variable is unset or yields no elements.
func StringSliceOr(name string, defaultValue []string) []string {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// LocationOr loads the IANA time zone named by the environment variable
// (e.g. "Europe/Bucharest"). An unset variable yields defaultValue; an
// unknown zone name is an error.
func LocationOr(name string, defaultValue *time.Location) (*time.Location, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return defaultValue, nil
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return nil, fmt.Errorf("environment variable %q: %w", name, err)
	}
	return loc, nil
}

// OverrideString sets *dst to the variable's value when it is non-empty.
func OverrideString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// OverrideInt sets *dst when the variable holds a valid integer.
func OverrideInt(dst *int, name string) {
	*dst = IntOr(name, *dst)
}

// OverrideDuration sets *dst when the variable holds a valid duration.
func OverrideDuration(dst *time.Duration, name string) {
	*dst = DurationOr(name, *dst)
}

// OverrideStringSlice sets *dst when the variable holds at least one
// non-empty comma-separated element.
func OverrideStringSlice(dst *[]string, name string) {
	*dst = StringSliceOr(name, *dst)
}
