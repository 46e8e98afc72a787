package widget

import (
	"fmt"
	"strings"
)

// Mapping selects how the discussion-identifying term is derived from page
// state. Unrecognized values fall back to pathname at resolution time.
type Mapping string

const (
	MappingURL      Mapping = "url"
	MappingTitle    Mapping = "title"
	MappingOGTitle  Mapping = "og:title"
	MappingSpecific Mapping = "specific"
	MappingNumber   Mapping = "number"
	MappingPathname Mapping = "pathname"
)

// KnownMappings lists the mapping modes the remote service understands.
func KnownMappings() []Mapping {
	return []Mapping{
		MappingPathname,
		MappingURL,
		MappingTitle,
		MappingOGTitle,
		MappingSpecific,
		MappingNumber,
	}
}

// Loading is the frame loading strategy. Anything other than lazy loads
// eagerly.
type Loading string

const (
	LoadingEager Loading = "eager"
	LoadingLazy  Loading = "lazy"
)

// Input box placement relative to the comment list.
const (
	InputPositionTop    = "top"
	InputPositionBottom = "bottom"
)

// Config is the full set of host-page configuration the widget recognizes.
// It is replaced wholesale on every change; there is no per-field mutation.
type Config struct {
	// Repo is the owner/name repository identifier. Mandatory.
	Repo string

	RepoID     string
	Category   string
	CategoryID string

	Mapping Mapping
	// Term is the explicit term (specific mapping) or discussion number
	// (number mapping).
	Term string

	ReactionsEnabled bool
	EmitMetadata     bool

	InputPosition string
	Theme         string
	Lang          string
	Loading       Loading
}

// DefaultConfig returns the documented defaults: pathname mapping, reactions
// enabled, bottom input, light theme, English, eager loading.
func DefaultConfig() Config {
	return Config{
		Mapping:          MappingPathname,
		ReactionsEnabled: true,
		InputPosition:    InputPositionBottom,
		Theme:            "light",
		Lang:             "en",
		Loading:          LoadingEager,
	}
}

// Normalize fills empty optional fields with their defaults. Boolean flags
// are taken as configured; start from DefaultConfig to get reactions enabled.
func (c Config) Normalize() Config {
	out := c
	out.Repo = strings.TrimSpace(out.Repo)
	if out.Mapping == "" {
		out.Mapping = MappingPathname
	}
	if out.InputPosition == "" {
		out.InputPosition = InputPositionBottom
	}
	if out.Theme == "" {
		out.Theme = "light"
	}
	if out.Lang == "" {
		out.Lang = "en"
	}
	if out.Loading != LoadingLazy {
		out.Loading = LoadingEager
	}
	return out
}

// Validate rejects configurations the remote service cannot serve.
func (c Config) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repository is required")
	}
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || strings.TrimSpace(owner) == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("repository must be in owner/name form, got %q", c.Repo)
	}
	return nil
}
