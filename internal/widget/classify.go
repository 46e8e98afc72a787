package widget

import "strings"

// ErrorClass buckets remote error strings by the recovery they require.
type ErrorClass int

const (
	// ClassUnrecoverable errors have no recovery; they are logged with a
	// report suggestion.
	ClassUnrecoverable ErrorClass = iota

	// ClassAuthFailure errors invalidate the session token and, when a
	// token existed, force one full re-embed.
	ClassAuthFailure

	// ClassMissingDiscussion is expected behavior: the discussion is
	// created lazily on the first comment or reaction.
	ClassMissingDiscussion
)

func (c ErrorClass) String() string {
	switch c {
	case ClassAuthFailure:
		return "auth_failure"
	case ClassMissingDiscussion:
		return "missing_discussion"
	default:
		return "unrecoverable"
	}
}

// The remote reports authentication problems with exactly these substrings:
// expired or revoked tokens and OAuth state mismatches.
var authFailureIndicators = []string{"Bad credentials", "Invalid state value"}

const missingDiscussionIndicator = "Discussion not found"

// ReportSuggestion is appended to errors no recovery exists for.
const ReportSuggestion = "Please consider reporting this error at https://github.com/giscus/giscus/issues/new."

// Classify maps a remote error message to its recovery class. Matching is
// case-sensitive substring search against the remote's known phrasing.
func Classify(message string) ErrorClass {
	for _, indicator := range authFailureIndicators {
		if strings.Contains(message, indicator) {
			return ClassAuthFailure
		}
	}
	if strings.Contains(message, missingDiscussionIndicator) {
		return ClassMissingDiscussion
	}
	return ClassUnrecoverable
}
