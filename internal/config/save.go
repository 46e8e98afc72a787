package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveWidgetPreferences persists the widget settings to the runtime
// configuration file. It merges the new values with any existing
// configuration and returns the path that was updated.
func SaveWidgetPreferences(cfg RuntimeConfig, opts ...Option) (string, error) {
	options := loadOptions{
		readFile: os.ReadFile,
		homeDir:  os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(&options)
	}

	configPath := options.configPath
	if configPath == "" {
		home, err := options.homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".gisco-config.json")
	}

	var existing map[string]any
	if options.readFile != nil {
		if data, err := options.readFile(configPath); err == nil {
			if len(data) > 0 {
				if err := json.Unmarshal(data, &existing); err != nil {
					return "", fmt.Errorf("parse config file: %w", err)
				}
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read config file: %w", err)
		}
	}
	if existing == nil {
		existing = map[string]any{}
	}

	existing["repo"] = cfg.Repo
	if cfg.RepoID != "" {
		existing["repo_id"] = cfg.RepoID
	}
	if cfg.Category != "" {
		existing["category"] = cfg.Category
	}
	if cfg.CategoryID != "" {
		existing["category_id"] = cfg.CategoryID
	}
	existing["mapping"] = cfg.Mapping
	if cfg.Term != "" {
		existing["term"] = cfg.Term
	}
	existing["theme"] = cfg.Theme
	existing["lang"] = cfg.Lang
	existing["reactions_enabled"] = cfg.ReactionsEnabled
	existing["emit_metadata"] = cfg.EmitMetadata
	existing["input_position"] = cfg.InputPosition
	existing["loading"] = cfg.Loading
	if cfg.RemoteOrigin != "" {
		existing["remote_origin"] = cfg.RemoteOrigin
	}

	encoded, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o600); err != nil {
		return "", fmt.Errorf("write config file: %w", err)
	}

	return configPath, nil
}
