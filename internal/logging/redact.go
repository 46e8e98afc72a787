package logging

import "regexp"

// placeholder is what redacted values are replaced with.
const placeholder = "[REDACTED]"

var (
	// Key/value pairs whose key names credential material. The value class
	// stops at '&' so a token inside a query string does not swallow the
	// parameters that follow it.
	sensitiveKeyValuePattern = regexp.MustCompile(
		`(?i)((?:"|')?(?:token|secret|password|session|cookie|credential|authorization)(?:"|')?\s*(?:=|:)\s*)(?:"|')?([^"'\s&,;]+)((?:"|')?)`,
	)

	// The one-shot session seed parameter in page addresses.
	seedParamPattern = regexp.MustCompile(`(?i)([?&]giscus=)([^&\s"']+)`)

	bearerTokenPattern = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-\._~+/]+=*)`)
)

func sanitizeLine(line string) string {
	sanitized := bearerTokenPattern.ReplaceAllStringFunc(line, func(match string) string {
		parts := bearerTokenPattern.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		return parts[1] + placeholder
	})

	sanitized = sensitiveKeyValuePattern.ReplaceAllStringFunc(sanitized, func(match string) string {
		submatches := sensitiveKeyValuePattern.FindStringSubmatch(match)
		if len(submatches) != 4 {
			return match
		}
		return submatches[1] + placeholder + submatches[3]
	})

	sanitized = seedParamPattern.ReplaceAllString(sanitized, "${1}"+placeholder)

	return sanitized
}
