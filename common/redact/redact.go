// Package redact provides helpers for stripping sensitive values from log
// output before it leaves the process.
//
// Bot tokens, app-level tokens, Matrix access tokens and the NLU token must
// never appear in log lines. Redaction is best-effort and operates on string
// representations; keeping secrets out of log call-sites comes first.
package redact

import (
	"slices"
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
//
//	safe := redact.String(err.Error(), botToken, appToken)
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Map returns a shallow copy of m with values replaced by [REDACTED] for
// every key whose name suggests it contains a secret. Empty and non-string
// values are left unchanged so that "not configured" stays visible.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			if str, ok := v.(string); ok && str != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Args flattens m into alternating key/value arguments for slog, in sorted
// key order, after redacting it.
func Args(m map[string]any) []any {
	safe := Map(m)
	keys := make([]string, 0, len(safe))
	for k := range safe {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, safe[k])
	}
	return args
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "key", "credential", "auth"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
