package enrich

import "strings"

// attackPatterns are URL substrings that mark an event suspicious regardless
// of status: path traversal, XSS, SQL injection, file inclusion, command
// injection. Matched case-insensitively.
var attackPatterns = []string{
	"../",
	"script>",
	"union select",
	"/etc/passwd",
	"cmd=",
}

// Suspicious reports whether an event warrants alert tracking.
//
// True when the status is a client or server error (>= 400), or when the URL
// contains a known attack pattern. Pure; no side effects.
func Suspicious(status int, url string) bool {
	if status >= 400 {
		return true
	}

	lower := strings.ToLower(url)
	for _, pattern := range attackPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
