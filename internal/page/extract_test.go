package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Posts · Hello World  </title>
  <meta property="og:title" content="Hello World (OG)">
  <meta name="description" content="A post about embedding widgets.">
</head>
<body><h1>Hello</h1></body>
</html>`

func TestExtractReadsTitleAndMetas(t *testing.T) {
	info, err := Extract("https://example.com/posts/hello.html?giscus=abc", strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Posts · Hello World", info.Title)
	assert.Equal(t, "Hello World (OG)", info.OGTitle)
	assert.Equal(t, "A post about embedding widgets.", info.Description)
	assert.Equal(t, "/posts/hello.html", info.Pathname)
	assert.Equal(t, "https://example.com/posts/hello.html?giscus=abc", info.URL)
}

func TestExtractPrefersDocumentOrderForMetas(t *testing.T) {
	html := `<html><head>
	  <meta name="title" content="Plain">
	  <meta property="og:title" content="OpenGraph">
	</head><body></body></html>`

	info, err := Extract("https://example.com/", strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "Plain", info.OGTitle)
}

func TestExtractOGDescriptionFallback(t *testing.T) {
	html := `<html><head>
	  <meta property="og:description" content="From OG">
	</head><body></body></html>`

	info, err := Extract("https://example.com/", strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "From OG", info.Description)
}

func TestExtractMissingMetadataYieldsEmptyStrings(t *testing.T) {
	info, err := Extract("https://example.com/bare", strings.NewReader("<html><body>hi</body></html>"))
	require.NoError(t, err)

	assert.Empty(t, info.Title)
	assert.Empty(t, info.OGTitle)
	assert.Empty(t, info.Description)
	assert.Equal(t, "/bare", info.Pathname)
}
