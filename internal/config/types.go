package config

import (
	"time"

	"gisco/internal/relay"
	"gisco/internal/widget"
)

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault  ValueSource = "default"
	SourceFile     ValueSource = "file"
	SourceEnv      ValueSource = "environment"
	SourceOverride ValueSource = "override"
)

const (
	DefaultStorageDir          = "~/.gisco-sessions"
	DefaultRelayListenAddr     = "127.0.0.1:17610"
	DefaultRelayTimeoutSeconds = 15
	DefaultPreviewListenAddr   = "127.0.0.1:17620"
)

// RuntimeConfig captures user-configurable settings shared across binaries.
type RuntimeConfig struct {
	RemoteOrigin string `json:"remote_origin" yaml:"remote_origin"`
	StorageDir   string `json:"storage_dir" yaml:"storage_dir"`
	ElementID    string `json:"element_id" yaml:"element_id"`

	Repo             string `json:"repo" yaml:"repo"`
	RepoID           string `json:"repo_id" yaml:"repo_id"`
	Category         string `json:"category" yaml:"category"`
	CategoryID       string `json:"category_id" yaml:"category_id"`
	Mapping          string `json:"mapping" yaml:"mapping"`
	Term             string `json:"term" yaml:"term"`
	Theme            string `json:"theme" yaml:"theme"`
	Lang             string `json:"lang" yaml:"lang"`
	ReactionsEnabled bool   `json:"reactions_enabled" yaml:"reactions_enabled"`
	EmitMetadata     bool   `json:"emit_metadata" yaml:"emit_metadata"`
	InputPosition    string `json:"input_position" yaml:"input_position"`
	Loading          string `json:"loading" yaml:"loading"`

	RelayListenAddr     string `json:"relay_listen_addr" yaml:"relay_listen_addr"`
	RelayToken          string `json:"relay_token" yaml:"relay_token"`
	RelayTimeoutSeconds int    `json:"relay_timeout_seconds" yaml:"relay_timeout_seconds"`

	PreviewListenAddr     string   `json:"preview_listen_addr" yaml:"preview_listen_addr"`
	PreviewSitePath       string   `json:"preview_site_path" yaml:"preview_site_path"`
	PreviewAllowedOrigins []string `json:"preview_allowed_origins" yaml:"preview_allowed_origins"`
}

// WidgetConfig converts the flat runtime settings into the widget layer's
// configuration, normalized and ready to apply.
func (c RuntimeConfig) WidgetConfig() widget.Config {
	w := widget.Config{
		Repo:             c.Repo,
		RepoID:           c.RepoID,
		Category:         c.Category,
		CategoryID:       c.CategoryID,
		Mapping:          widget.Mapping(c.Mapping),
		Term:             c.Term,
		Theme:            c.Theme,
		Lang:             c.Lang,
		ReactionsEnabled: c.ReactionsEnabled,
		EmitMetadata:     c.EmitMetadata,
		InputPosition:    c.InputPosition,
		Loading:          widget.Loading(c.Loading),
	}
	return w.Normalize()
}

// RelayConfig converts the relay settings for the endpoint constructor.
func (c RuntimeConfig) RelayConfig() relay.Config {
	return relay.Config{
		ListenAddr: c.RelayListenAddr,
		Token:      c.RelayToken,
		Timeout:    time.Duration(c.RelayTimeoutSeconds) * time.Second,
	}
}

// Metadata contains provenance details for loaded configuration.
type Metadata struct {
	sources  map[string]ValueSource
	loadedAt time.Time
}

// Source returns the origin for the given configuration field.
func (m Metadata) Source(field string) ValueSource {
	if m.sources == nil {
		return SourceDefault
	}
	if src, ok := m.sources[field]; ok {
		return src
	}
	return SourceDefault
}

// LoadedAt returns the timestamp when the configuration was constructed.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}

// Overrides conveys caller-specified values that should win over env/file sources.
type Overrides struct {
	RemoteOrigin     *string
	StorageDir       *string
	ElementID        *string
	Repo             *string
	RepoID           *string
	Category         *string
	CategoryID       *string
	Mapping          *string
	Term             *string
	Theme            *string
	Lang             *string
	ReactionsEnabled *bool
	EmitMetadata     *bool
	InputPosition    *string
	Loading          *string
	RelayListenAddr  *string
	RelayToken       *string
	PreviewListen    *string
	PreviewSitePath  *string
}

// fileConfig mirrors RuntimeConfig for JSON decoding. Booleans and integers
// are pointers so an absent key is distinguishable from a zero value.
type fileConfig struct {
	RemoteOrigin string `json:"remote_origin"`
	StorageDir   string `json:"storage_dir"`
	ElementID    string `json:"element_id"`

	Repo             string `json:"repo"`
	RepoID           string `json:"repo_id"`
	Category         string `json:"category"`
	CategoryID       string `json:"category_id"`
	Mapping          string `json:"mapping"`
	Term             string `json:"term"`
	Theme            string `json:"theme"`
	Lang             string `json:"lang"`
	ReactionsEnabled *bool  `json:"reactions_enabled"`
	EmitMetadata     *bool  `json:"emit_metadata"`
	InputPosition    string `json:"input_position"`
	Loading          string `json:"loading"`

	RelayListenAddr     string `json:"relay_listen_addr"`
	RelayToken          string `json:"relay_token"`
	RelayTimeoutSeconds *int   `json:"relay_timeout_seconds"`

	PreviewListenAddr     string   `json:"preview_listen_addr"`
	PreviewSitePath       string   `json:"preview_site_path"`
	PreviewAllowedOrigins []string `json:"preview_allowed_origins"`
}
