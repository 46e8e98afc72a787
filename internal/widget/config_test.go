package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, MappingPathname, cfg.Mapping)
	assert.True(t, cfg.ReactionsEnabled)
	assert.False(t, cfg.EmitMetadata)
	assert.Equal(t, InputPositionBottom, cfg.InputPosition)
	assert.Equal(t, "light", cfg.Theme)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, LoadingEager, cfg.Loading)
	assert.Empty(t, cfg.Repo)
}

func TestNormalizeFillsEmptyFields(t *testing.T) {
	cfg := Config{Repo: "  owner/name  "}
	got := cfg.Normalize()

	assert.Equal(t, "owner/name", got.Repo)
	assert.Equal(t, MappingPathname, got.Mapping)
	assert.Equal(t, InputPositionBottom, got.InputPosition)
	assert.Equal(t, "light", got.Theme)
	assert.Equal(t, "en", got.Lang)
	assert.Equal(t, LoadingEager, got.Loading)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Repo:          "owner/name",
		Mapping:       MappingTitle,
		InputPosition: InputPositionTop,
		Theme:         "dark",
		Lang:          "fr",
		Loading:       LoadingLazy,
		EmitMetadata:  true,
	}
	got := cfg.Normalize()

	assert.Equal(t, cfg, got)
}

func TestNormalizeCoercesUnknownLoading(t *testing.T) {
	got := Config{Loading: "deferred"}.Normalize()
	assert.Equal(t, LoadingEager, got.Loading)
}

func TestNormalizeLeavesBooleansAlone(t *testing.T) {
	// Reactions default on via DefaultConfig, not Normalize; a zero Config
	// stays disabled.
	got := Config{}.Normalize()
	assert.False(t, got.ReactionsEnabled)
}

func TestValidateRepo(t *testing.T) {
	tests := []struct {
		name    string
		repo    string
		wantErr bool
	}{
		{"owner and name", "giscus/giscus", false},
		{"empty", "", true},
		{"missing name", "giscus", true},
		{"missing owner", "/giscus", true},
		{"blank name", "giscus/ ", true},
		{"extra segment kept by remote", "a/b/c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Repo = tt.repo
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKnownMappingsCoversAllModes(t *testing.T) {
	known := KnownMappings()
	assert.Len(t, known, 6)
	assert.Contains(t, known, MappingURL)
	assert.Contains(t, known, MappingTitle)
	assert.Contains(t, known, MappingOGTitle)
	assert.Contains(t, known, MappingSpecific)
	assert.Contains(t, known, MappingNumber)
	assert.Contains(t, known, MappingPathname)
}
