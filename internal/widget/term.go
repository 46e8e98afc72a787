package widget

import (
	"regexp"
	"strings"

	"gisco/internal/page"
)

var trailingExtensionPattern = regexp.MustCompile(`\.\w+$`)

// ResolveTerm derives the discussion-identifying term for a mapping mode
// from page metadata. It never fails; absent metadata yields "".
func ResolveTerm(m Mapping, info page.Info, configuredTerm string) string {
	switch m {
	case MappingURL:
		return CleanAddress(info.URL)
	case MappingTitle:
		return info.Title
	case MappingOGTitle:
		return info.OGTitle
	case MappingSpecific:
		return configuredTerm
	case MappingNumber:
		// Number mappings locate discussions by number, not term.
		return ""
	default:
		return pathnameTerm(info.Pathname)
	}
}

// ResolveNumber returns the configured term as the discussion number field,
// which only the number mapping uses.
func ResolveNumber(m Mapping, configuredTerm string) string {
	if m == MappingNumber {
		return configuredTerm
	}
	return ""
}

// pathnameTerm turns a URL path into a term: leading slash dropped, trailing
// file extension stripped. The bare root path maps to the literal "index".
func pathnameTerm(pathname string) string {
	if len(pathname) < 2 {
		return "index"
	}
	trimmed := strings.TrimPrefix(pathname, "/")
	return trailingExtensionPattern.ReplaceAllString(trimmed, "")
}
