package nodes

import (
	"fmt"
)

// String reads an optional string field.
func String(config map[string]any, field string) (string, error) {
	raw, ok := config[field]
	if !ok || raw == nil {
		return "", nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string", field)
	}

	return value, nil
}

// RequiredString reads a mandatory, non-empty string field.
func RequiredString(config map[string]any, field string) (string, error) {
	value, err := String(config, field)
	if err != nil {
		return "", err
	}

	if value == "" {
		return "", fmt.Errorf("missing required field '%s'", field)
	}

	return value, nil
}

// Bool reads an optional boolean field.
func Bool(config map[string]any, field string, fallback bool) (bool, error) {
	raw, ok := config[field]
	if !ok || raw == nil {
		return fallback, nil
	}

	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("field '%s' must be a boolean", field)
	}

	return value, nil
}

// Strings reads an optional list of strings. JSON decoding produces []any, Go
// callers usually pass []string; both are accepted.
func Strings(config map[string]any, field string) ([]string, error) {
	raw, ok := config[field]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		values := make([]string, len(v))

		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", field, i)
			}

			values[i] = s
		}

		return values, nil
	default:
		return nil, fmt.Errorf("field '%s' must be a list of strings", field)
	}
}

// StringMap reads an optional object whose values are strings.
func StringMap(config map[string]any, field string) (map[string]string, error) {
	raw, ok := config[field]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case map[string]string:
		return v, nil
	case map[string]any:
		values := make(map[string]string, len(v))

		for key, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s.%s must be a string", field, key)
			}

			values[key] = s
		}

		return values, nil
	default:
		return nil, fmt.Errorf("field '%s' must be an object", field)
	}
}
