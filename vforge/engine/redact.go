package engine

import "strings"

// Key fragments that mark a value as sensitive. Matching is substring-based
// so compounds like api_key and access_token are covered.
var sensitiveKeyParts = []string{
	"token",
	"secret",
	"key",
	"password",
	"auth",
	"credential",
}

const maskedValue = "***MASKED***"

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// RedactMap returns a copy of m with sensitive values masked, recursing into
// nested maps and slices. The input is never mutated; redaction happens only
// on the copy that goes to logs and traces.
func RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = maskedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

// RedactStringMap masks sensitive values of a flat string map (headers).
func RedactStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = maskedValue
		} else {
			out[k] = v
		}
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return RedactMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
