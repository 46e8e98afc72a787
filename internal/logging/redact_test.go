package logging

import (
	"strings"
	"testing"
)

func TestSanitizeSeedParameter(t *testing.T) {
	line := "seeding from http://example.com/post?giscus=tok_12345&utm=x"
	got := sanitizeLine(line)

	if strings.Contains(got, "tok_12345") {
		t.Fatalf("seed token leaked: %q", got)
	}
	if !strings.Contains(got, "giscus="+placeholder) {
		t.Fatalf("expected placeholder after giscus=, got %q", got)
	}
	if !strings.Contains(got, "utm=x") {
		t.Fatalf("unrelated parameter was mangled: %q", got)
	}
}

func TestSanitizeSessionQueryValue(t *testing.T) {
	line := "widget address: https://giscus.app/en/widget?origin=http%3A%2F%2Fa&session=s3cr3t&repo=a%2Fb"
	got := sanitizeLine(line)

	if strings.Contains(got, "s3cr3t") {
		t.Fatalf("session token leaked: %q", got)
	}
	if !strings.Contains(got, "repo=a%2Fb") {
		t.Fatalf("redaction consumed the following parameter: %q", got)
	}
}

func TestSanitizeKeyValueAndBearer(t *testing.T) {
	cases := []struct {
		name string
		line string
		leak string
	}{
		{"json token field", `shim hello {"token": "abcdef123"}`, "abcdef123"},
		{"bearer credential", "authorization: Bearer eyJhbGciOi.payload", "eyJhbGciOi"},
		{"password assignment", "password=hunter2;", "hunter2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeLine(tc.line)
			if strings.Contains(got, tc.leak) {
				t.Fatalf("expected %q to be redacted, got %q", tc.leak, got)
			}
			if !strings.Contains(got, placeholder) {
				t.Fatalf("expected placeholder in output, got %q", got)
			}
		})
	}
}
