package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gisco/internal/widget"
)

// EnvLookup resolves the value for an environment variable.
type EnvLookup func(string) (string, bool)

// Option customises the loader behaviour.
type Option func(*loadOptions)

type loadOptions struct {
	envLookup  EnvLookup
	readFile   func(string) ([]byte, error)
	homeDir    func() (string, error)
	overrides  Overrides
	configPath string
}

// WithEnv supplies a custom environment lookup implementation.
func WithEnv(lookup EnvLookup) Option {
	return func(o *loadOptions) {
		o.envLookup = lookup
	}
}

// WithOverrides applies caller overrides that take highest precedence.
func WithOverrides(overrides Overrides) Option {
	return func(o *loadOptions) {
		o.overrides = overrides
	}
}

// WithConfigPath forces the loader to read configuration from a specific file.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) {
		o.configPath = path
	}
}

// WithFileReader injects a custom reader, used primarily for tests.
func WithFileReader(reader func(string) ([]byte, error)) Option {
	return func(o *loadOptions) {
		o.readFile = reader
	}
}

// WithHomeDir overrides how the loader resolves the user's home directory.
func WithHomeDir(resolver func() (string, error)) Option {
	return func(o *loadOptions) {
		o.homeDir = resolver
	}
}

// DefaultEnvLookup delegates to os.LookupEnv.
func DefaultEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// AliasEnvLookup wraps an EnvLookup with additional alias keys.
func AliasEnvLookup(base EnvLookup, aliases map[string][]string) EnvLookup {
	return func(key string) (string, bool) {
		if base == nil {
			base = DefaultEnvLookup
		}
		if value, ok := base(key); ok && value != "" {
			return value, true
		}
		if list, ok := aliases[key]; ok {
			for _, alias := range list {
				if value, ok := base(alias); ok && value != "" {
					return value, true
				}
			}
		}
		return "", false
	}
}

// Load constructs the runtime configuration by merging defaults, file, env and overrides.
func Load(opts ...Option) (RuntimeConfig, Metadata, error) {
	options := loadOptions{
		envLookup: DefaultEnvLookupWithAliases(),
		readFile:  os.ReadFile,
		homeDir:   os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(&options)
	}

	meta := Metadata{sources: map[string]ValueSource{}, loadedAt: time.Now()}

	defaults := widget.DefaultConfig()
	cfg := RuntimeConfig{
		RemoteOrigin:        widget.DefaultRemoteOrigin,
		StorageDir:          DefaultStorageDir,
		Mapping:             string(defaults.Mapping),
		Theme:               defaults.Theme,
		Lang:                defaults.Lang,
		ReactionsEnabled:    defaults.ReactionsEnabled,
		InputPosition:       defaults.InputPosition,
		Loading:             string(defaults.Loading),
		RelayListenAddr:     DefaultRelayListenAddr,
		RelayTimeoutSeconds: DefaultRelayTimeoutSeconds,
		PreviewListenAddr:   DefaultPreviewListenAddr,
	}

	if err := applyFile(&cfg, &meta, options); err != nil {
		return RuntimeConfig{}, Metadata{}, err
	}
	if err := applyEnv(&cfg, &meta, options); err != nil {
		return RuntimeConfig{}, Metadata{}, err
	}
	applyOverrides(&cfg, &meta, options.overrides)

	normalizeRuntimeConfig(&cfg)
	return cfg, meta, nil
}

func applyFile(cfg *RuntimeConfig, meta *Metadata, opts loadOptions) error {
	configPath := opts.configPath
	if configPath == "" {
		home, err := opts.homeDir()
		if err != nil {
			return nil
		}
		configPath = filepath.Join(home, ".gisco-config.json")
	}

	data, err := opts.readFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if parsed.RemoteOrigin != "" {
		cfg.RemoteOrigin = parsed.RemoteOrigin
		meta.sources["remote_origin"] = SourceFile
	}
	if parsed.StorageDir != "" {
		cfg.StorageDir = parsed.StorageDir
		meta.sources["storage_dir"] = SourceFile
	}
	if parsed.ElementID != "" {
		cfg.ElementID = parsed.ElementID
		meta.sources["element_id"] = SourceFile
	}
	if parsed.Repo != "" {
		cfg.Repo = parsed.Repo
		meta.sources["repo"] = SourceFile
	}
	if parsed.RepoID != "" {
		cfg.RepoID = parsed.RepoID
		meta.sources["repo_id"] = SourceFile
	}
	if parsed.Category != "" {
		cfg.Category = parsed.Category
		meta.sources["category"] = SourceFile
	}
	if parsed.CategoryID != "" {
		cfg.CategoryID = parsed.CategoryID
		meta.sources["category_id"] = SourceFile
	}
	if parsed.Mapping != "" {
		cfg.Mapping = parsed.Mapping
		meta.sources["mapping"] = SourceFile
	}
	if parsed.Term != "" {
		cfg.Term = parsed.Term
		meta.sources["term"] = SourceFile
	}
	if parsed.Theme != "" {
		cfg.Theme = parsed.Theme
		meta.sources["theme"] = SourceFile
	}
	if parsed.Lang != "" {
		cfg.Lang = parsed.Lang
		meta.sources["lang"] = SourceFile
	}
	if parsed.ReactionsEnabled != nil {
		cfg.ReactionsEnabled = *parsed.ReactionsEnabled
		meta.sources["reactions_enabled"] = SourceFile
	}
	if parsed.EmitMetadata != nil {
		cfg.EmitMetadata = *parsed.EmitMetadata
		meta.sources["emit_metadata"] = SourceFile
	}
	if parsed.InputPosition != "" {
		cfg.InputPosition = parsed.InputPosition
		meta.sources["input_position"] = SourceFile
	}
	if parsed.Loading != "" {
		cfg.Loading = parsed.Loading
		meta.sources["loading"] = SourceFile
	}
	if parsed.RelayListenAddr != "" {
		cfg.RelayListenAddr = parsed.RelayListenAddr
		meta.sources["relay_listen_addr"] = SourceFile
	}
	if parsed.RelayToken != "" {
		cfg.RelayToken = parsed.RelayToken
		meta.sources["relay_token"] = SourceFile
	}
	if parsed.RelayTimeoutSeconds != nil {
		cfg.RelayTimeoutSeconds = *parsed.RelayTimeoutSeconds
		meta.sources["relay_timeout_seconds"] = SourceFile
	}
	if parsed.PreviewListenAddr != "" {
		cfg.PreviewListenAddr = parsed.PreviewListenAddr
		meta.sources["preview_listen_addr"] = SourceFile
	}
	if parsed.PreviewSitePath != "" {
		cfg.PreviewSitePath = parsed.PreviewSitePath
		meta.sources["preview_site_path"] = SourceFile
	}
	if len(parsed.PreviewAllowedOrigins) > 0 {
		cfg.PreviewAllowedOrigins = append([]string(nil), parsed.PreviewAllowedOrigins...)
		meta.sources["preview_allowed_origins"] = SourceFile
	}

	return nil
}

func applyEnv(cfg *RuntimeConfig, meta *Metadata, opts loadOptions) error {
	lookup := opts.envLookup
	if lookup == nil {
		lookup = DefaultEnvLookup
	}

	if value, ok := lookup("GISCO_REMOTE_ORIGIN"); ok && value != "" {
		cfg.RemoteOrigin = value
		meta.sources["remote_origin"] = SourceEnv
	}
	if value, ok := lookup("GISCO_STORAGE_DIR"); ok && value != "" {
		cfg.StorageDir = value
		meta.sources["storage_dir"] = SourceEnv
	}
	if value, ok := lookup("GISCO_ELEMENT_ID"); ok && value != "" {
		cfg.ElementID = value
		meta.sources["element_id"] = SourceEnv
	}
	if value, ok := lookup("GISCO_REPO"); ok && value != "" {
		cfg.Repo = value
		meta.sources["repo"] = SourceEnv
	}
	if value, ok := lookup("GISCO_REPO_ID"); ok && value != "" {
		cfg.RepoID = value
		meta.sources["repo_id"] = SourceEnv
	}
	if value, ok := lookup("GISCO_CATEGORY"); ok && value != "" {
		cfg.Category = value
		meta.sources["category"] = SourceEnv
	}
	if value, ok := lookup("GISCO_CATEGORY_ID"); ok && value != "" {
		cfg.CategoryID = value
		meta.sources["category_id"] = SourceEnv
	}
	if value, ok := lookup("GISCO_MAPPING"); ok && value != "" {
		cfg.Mapping = value
		meta.sources["mapping"] = SourceEnv
	}
	if value, ok := lookup("GISCO_TERM"); ok && value != "" {
		cfg.Term = value
		meta.sources["term"] = SourceEnv
	}
	if value, ok := lookup("GISCO_THEME"); ok && value != "" {
		cfg.Theme = value
		meta.sources["theme"] = SourceEnv
	}
	if value, ok := lookup("GISCO_LANG"); ok && value != "" {
		cfg.Lang = value
		meta.sources["lang"] = SourceEnv
	}
	if value, ok := lookup("GISCO_REACTIONS_ENABLED"); ok && value != "" {
		parsed, err := parseBoolEnv(value)
		if err != nil {
			return fmt.Errorf("parse GISCO_REACTIONS_ENABLED: %w", err)
		}
		cfg.ReactionsEnabled = parsed
		meta.sources["reactions_enabled"] = SourceEnv
	}
	if value, ok := lookup("GISCO_EMIT_METADATA"); ok && value != "" {
		parsed, err := parseBoolEnv(value)
		if err != nil {
			return fmt.Errorf("parse GISCO_EMIT_METADATA: %w", err)
		}
		cfg.EmitMetadata = parsed
		meta.sources["emit_metadata"] = SourceEnv
	}
	if value, ok := lookup("GISCO_INPUT_POSITION"); ok && value != "" {
		cfg.InputPosition = value
		meta.sources["input_position"] = SourceEnv
	}
	if value, ok := lookup("GISCO_LOADING"); ok && value != "" {
		cfg.Loading = value
		meta.sources["loading"] = SourceEnv
	}
	if value, ok := lookup("GISCO_RELAY_LISTEN_ADDR"); ok && value != "" {
		cfg.RelayListenAddr = value
		meta.sources["relay_listen_addr"] = SourceEnv
	}
	if value, ok := lookup("GISCO_RELAY_TOKEN"); ok && value != "" {
		cfg.RelayToken = value
		meta.sources["relay_token"] = SourceEnv
	}
	if value, ok := lookup("GISCO_RELAY_TIMEOUT_SECONDS"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse GISCO_RELAY_TIMEOUT_SECONDS: %w", err)
		}
		cfg.RelayTimeoutSeconds = parsed
		meta.sources["relay_timeout_seconds"] = SourceEnv
	}
	if value, ok := lookup("GISCO_PREVIEW_LISTEN_ADDR"); ok && value != "" {
		cfg.PreviewListenAddr = value
		meta.sources["preview_listen_addr"] = SourceEnv
	}
	if value, ok := lookup("GISCO_PREVIEW_SITE"); ok && value != "" {
		cfg.PreviewSitePath = value
		meta.sources["preview_site_path"] = SourceEnv
	}
	if value, ok := lookup("GISCO_PREVIEW_ALLOWED_ORIGINS"); ok && value != "" {
		parts := strings.FieldsFunc(value, func(r rune) bool {
			switch r {
			case ',', ';', ' ', '\n', '\t':
				return true
			default:
				return false
			}
		})
		filtered := parts[:0]
		for _, token := range parts {
			trimmed := strings.TrimSpace(token)
			if trimmed != "" {
				filtered = append(filtered, trimmed)
			}
		}
		cfg.PreviewAllowedOrigins = append([]string(nil), filtered...)
		meta.sources["preview_allowed_origins"] = SourceEnv
	}

	return nil
}

func applyOverrides(cfg *RuntimeConfig, meta *Metadata, overrides Overrides) {
	if overrides.RemoteOrigin != nil && *overrides.RemoteOrigin != "" {
		cfg.RemoteOrigin = *overrides.RemoteOrigin
		meta.sources["remote_origin"] = SourceOverride
	}
	if overrides.StorageDir != nil && *overrides.StorageDir != "" {
		cfg.StorageDir = *overrides.StorageDir
		meta.sources["storage_dir"] = SourceOverride
	}
	if overrides.ElementID != nil && *overrides.ElementID != "" {
		cfg.ElementID = *overrides.ElementID
		meta.sources["element_id"] = SourceOverride
	}
	if overrides.Repo != nil && *overrides.Repo != "" {
		cfg.Repo = *overrides.Repo
		meta.sources["repo"] = SourceOverride
	}
	if overrides.RepoID != nil && *overrides.RepoID != "" {
		cfg.RepoID = *overrides.RepoID
		meta.sources["repo_id"] = SourceOverride
	}
	if overrides.Category != nil && *overrides.Category != "" {
		cfg.Category = *overrides.Category
		meta.sources["category"] = SourceOverride
	}
	if overrides.CategoryID != nil && *overrides.CategoryID != "" {
		cfg.CategoryID = *overrides.CategoryID
		meta.sources["category_id"] = SourceOverride
	}
	if overrides.Mapping != nil && *overrides.Mapping != "" {
		cfg.Mapping = *overrides.Mapping
		meta.sources["mapping"] = SourceOverride
	}
	if overrides.Term != nil && *overrides.Term != "" {
		cfg.Term = *overrides.Term
		meta.sources["term"] = SourceOverride
	}
	if overrides.Theme != nil && *overrides.Theme != "" {
		cfg.Theme = *overrides.Theme
		meta.sources["theme"] = SourceOverride
	}
	if overrides.Lang != nil && *overrides.Lang != "" {
		cfg.Lang = *overrides.Lang
		meta.sources["lang"] = SourceOverride
	}
	if overrides.ReactionsEnabled != nil {
		cfg.ReactionsEnabled = *overrides.ReactionsEnabled
		meta.sources["reactions_enabled"] = SourceOverride
	}
	if overrides.EmitMetadata != nil {
		cfg.EmitMetadata = *overrides.EmitMetadata
		meta.sources["emit_metadata"] = SourceOverride
	}
	if overrides.InputPosition != nil && *overrides.InputPosition != "" {
		cfg.InputPosition = *overrides.InputPosition
		meta.sources["input_position"] = SourceOverride
	}
	if overrides.Loading != nil && *overrides.Loading != "" {
		cfg.Loading = *overrides.Loading
		meta.sources["loading"] = SourceOverride
	}
	if overrides.RelayListenAddr != nil && *overrides.RelayListenAddr != "" {
		cfg.RelayListenAddr = *overrides.RelayListenAddr
		meta.sources["relay_listen_addr"] = SourceOverride
	}
	if overrides.RelayToken != nil && *overrides.RelayToken != "" {
		cfg.RelayToken = *overrides.RelayToken
		meta.sources["relay_token"] = SourceOverride
	}
	if overrides.PreviewListen != nil && *overrides.PreviewListen != "" {
		cfg.PreviewListenAddr = *overrides.PreviewListen
		meta.sources["preview_listen_addr"] = SourceOverride
	}
	if overrides.PreviewSitePath != nil && *overrides.PreviewSitePath != "" {
		cfg.PreviewSitePath = *overrides.PreviewSitePath
		meta.sources["preview_site_path"] = SourceOverride
	}
}

func normalizeRuntimeConfig(cfg *RuntimeConfig) {
	cfg.RemoteOrigin = strings.TrimRight(strings.TrimSpace(cfg.RemoteOrigin), "/")
	cfg.StorageDir = strings.TrimSpace(cfg.StorageDir)
	cfg.ElementID = strings.TrimSpace(cfg.ElementID)
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	cfg.RepoID = strings.TrimSpace(cfg.RepoID)
	cfg.Category = strings.TrimSpace(cfg.Category)
	cfg.CategoryID = strings.TrimSpace(cfg.CategoryID)
	cfg.Mapping = strings.TrimSpace(cfg.Mapping)
	cfg.Theme = strings.TrimSpace(cfg.Theme)
	cfg.Lang = strings.TrimSpace(cfg.Lang)
	cfg.InputPosition = strings.TrimSpace(cfg.InputPosition)
	cfg.Loading = strings.TrimSpace(cfg.Loading)
	cfg.RelayListenAddr = strings.TrimSpace(cfg.RelayListenAddr)
	cfg.RelayToken = strings.TrimSpace(cfg.RelayToken)
	cfg.PreviewListenAddr = strings.TrimSpace(cfg.PreviewListenAddr)
	cfg.PreviewSitePath = strings.TrimSpace(cfg.PreviewSitePath)

	if cfg.RemoteOrigin == "" {
		cfg.RemoteOrigin = widget.DefaultRemoteOrigin
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = DefaultStorageDir
	}
	if cfg.RelayTimeoutSeconds <= 0 {
		cfg.RelayTimeoutSeconds = DefaultRelayTimeoutSeconds
	}

	if len(cfg.PreviewAllowedOrigins) > 0 {
		filtered := cfg.PreviewAllowedOrigins[:0]
		seen := make(map[string]struct{}, len(cfg.PreviewAllowedOrigins))
		for _, origin := range cfg.PreviewAllowedOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			filtered = append(filtered, trimmed)
		}
		cfg.PreviewAllowedOrigins = filtered
	}
}

func parseBoolEnv(value string) (bool, error) {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	switch lower {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}
