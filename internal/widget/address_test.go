package widget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gisco/internal/page"
)

func TestCleanAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"no query", "https://example.com/posts/a", "https://example.com/posts/a"},
		{"only seed param", "https://example.com/posts/a?giscus=tok", "https://example.com/posts/a"},
		{"seed among others keeps order", "https://example.com/p?b=2&a=1&giscus=tok&c=3", "https://example.com/p?b=2&a=1&c=3"},
		{"escaped seed key", "https://example.com/p?%67iscus=tok&x=1", "https://example.com/p?x=1"},
		{"fragment survives", "https://example.com/p?giscus=tok#comments", "https://example.com/p#comments"},
		{"unparseable returned as-is", "://nowhere", "://nowhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanAddress(tt.address))
		})
	}
}

func TestBuildAddressCanonical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "giscus/giscus"
	info := page.Info{
		URL:         "https://example.com/posts/a?giscus=SEED",
		Pathname:    "/posts/a",
		Description: "A post",
	}

	got := BuildAddress("", cfg, info, "tok123", "")

	want := "https://giscus.app/en/widget?" +
		"origin=https%3A%2F%2Fexample.com%2Fposts%2Fa" +
		"&session=tok123" +
		"&repo=giscus%2Fgiscus" +
		"&repoId=" +
		"&category=" +
		"&categoryId=" +
		"&term=posts%2Fa" +
		"&number=" +
		"&reactionsEnabled=true" +
		"&emitMetadata=false" +
		"&inputPosition=bottom" +
		"&theme=light" +
		"&description=A+post"
	assert.Equal(t, want, got)
}

func TestBuildAddressParamOrderIsStable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	got := BuildAddress("", cfg, page.Info{URL: "https://example.com/"}, "", "")

	_, query, ok := strings.Cut(got, "?")
	require.True(t, ok)

	var keys []string
	for _, pair := range strings.Split(query, "&") {
		key, _, _ := strings.Cut(pair, "=")
		keys = append(keys, key)
	}
	assert.Equal(t, []string{
		"origin", "session", "repo", "repoId", "category", "categoryId",
		"term", "number", "reactionsEnabled", "emitMetadata",
		"inputPosition", "theme", "description",
	}, keys)
}

func TestBuildAddressEmptyFieldsStayPresent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	got := BuildAddress("", cfg, page.Info{URL: "https://example.com/"}, "", "")

	assert.Contains(t, got, "&session=&")
	assert.Contains(t, got, "&repoId=&")
	assert.Contains(t, got, "&categoryId=&")
	assert.True(t, strings.HasSuffix(got, "&description="))
}

func TestBuildAddressLangSegment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	cfg.Lang = "fr"
	got := BuildAddress("https://giscus.example/", cfg, page.Info{URL: "https://example.com/"}, "", "")
	assert.True(t, strings.HasPrefix(got, "https://giscus.example/fr/widget?"), got)

	cfg.Lang = ""
	got = BuildAddress("https://giscus.example", cfg, page.Info{URL: "https://example.com/"}, "", "")
	assert.True(t, strings.HasPrefix(got, "https://giscus.example/widget?"), got)
}

func TestBuildAddressElementIDRidesOriginFragment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	got := BuildAddress("", cfg, page.Info{URL: "https://example.com/p"}, "", "comments")
	assert.Contains(t, got, "origin=https%3A%2F%2Fexample.com%2Fp%23comments&")
}

func TestBuildAddressSeedStrippedFromOrigin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	got := BuildAddress("", cfg, page.Info{URL: "https://example.com/p?giscus=SECRET&x=1"}, "", "")
	assert.NotContains(t, got, "SECRET")
	assert.Contains(t, got, "origin=https%3A%2F%2Fexample.com%2Fp%3Fx%3D1&")
}

func TestBuildAddressNumberMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repo = "o/r"
	cfg.Mapping = MappingNumber
	cfg.Term = "42"
	got := BuildAddress("", cfg, page.Info{URL: "https://example.com/"}, "", "")
	assert.Contains(t, got, "&term=&")
	assert.Contains(t, got, "&number=42&")
}
