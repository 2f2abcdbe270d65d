package notifications

import "regexp"

// secretShaped matches obvious secret-bearing substrings in a payload's
// logged representation: password:/token:/apiKey: style key-value pairs,
// with or without JSON quoting around the key and the value.
var secretShaped = regexp.MustCompile(`(?i)(password|token|api[_-]?key|secret)"?\s*[:=]\s*"?[^"\s,}]+`)

// sanitizeForLog redacts secret-shaped substrings before a payload's JSON
// is written to the debug log. It never touches the persisted
// Notification row itself, only what reaches the logger.
func sanitizeForLog(raw string) string {
	return secretShaped.ReplaceAllStringFunc(raw, func(match string) string {
		idx := indexOfSeparator(match)
		if idx < 0 {
			return match
		}
		return match[:idx+1] + " [REDACTED]"
	})
}

func indexOfSeparator(s string) int {
	for i, r := range s {
		if r == ':' || r == '=' {
			return i
		}
	}
	return -1
}
