package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveWidgetPreferencesCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := RuntimeConfig{
		Repo:             "giscus/giscus",
		Mapping:          "pathname",
		Theme:            "dark",
		Lang:             "en",
		ReactionsEnabled: true,
		InputPosition:    "bottom",
		Loading:          "eager",
	}
	saved, err := SaveWidgetPreferences(cfg, WithConfigPath(path))
	if err != nil {
		t.Fatalf("SaveWidgetPreferences returned error: %v", err)
	}
	if saved != path {
		t.Fatalf("expected path %q, got %q", path, saved)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}

	if raw["repo"] != "giscus/giscus" {
		t.Fatalf("expected repo persisted, got %v", raw["repo"])
	}
	if raw["theme"] != "dark" {
		t.Fatalf("expected theme persisted, got %v", raw["theme"])
	}
	if v, ok := raw["reactions_enabled"].(bool); !ok || !v {
		t.Fatalf("expected reactions_enabled true, got %v", raw["reactions_enabled"])
	}
	if _, ok := raw["repo_id"]; ok {
		t.Fatal("expected empty repo_id to be omitted")
	}
}

func TestSaveWidgetPreferencesPreservesExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	seed := []byte(`{"relay_token": "keep-me", "storage_dir": "~/elsewhere"}`)
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	cfg := RuntimeConfig{Repo: "giscus/giscus", Mapping: "title", Theme: "light", Lang: "en"}
	if _, err := SaveWidgetPreferences(cfg, WithConfigPath(path)); err != nil {
		t.Fatalf("SaveWidgetPreferences returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}

	if raw["relay_token"] != "keep-me" {
		t.Fatalf("expected relay_token preserved, got %v", raw["relay_token"])
	}
	if raw["storage_dir"] != "~/elsewhere" {
		t.Fatalf("expected storage_dir preserved, got %v", raw["storage_dir"])
	}
	if raw["mapping"] != "title" {
		t.Fatalf("expected mapping updated, got %v", raw["mapping"])
	}
}

func TestSaveWidgetPreferencesRoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := RuntimeConfig{
		Repo:             "owner/name",
		Mapping:          "og:title",
		Theme:            "preferred_color_scheme",
		Lang:             "fr",
		ReactionsEnabled: false,
		EmitMetadata:     true,
		InputPosition:    "top",
		Loading:          "lazy",
	}
	if _, err := SaveWidgetPreferences(cfg, WithConfigPath(path)); err != nil {
		t.Fatalf("SaveWidgetPreferences returned error: %v", err)
	}

	loaded, meta, err := Load(WithEnv(envMap{}.Lookup), WithConfigPath(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Repo != "owner/name" || loaded.Mapping != "og:title" {
		t.Fatalf("unexpected reloaded values: %q/%q", loaded.Repo, loaded.Mapping)
	}
	if loaded.ReactionsEnabled {
		t.Fatal("expected reactions to reload as disabled")
	}
	if !loaded.EmitMetadata {
		t.Fatal("expected metadata emission to reload as enabled")
	}
	if loaded.InputPosition != "top" || loaded.Loading != "lazy" {
		t.Fatalf("unexpected placement: %q/%q", loaded.InputPosition, loaded.Loading)
	}
	if got := meta.Source("repo"); got != SourceFile {
		t.Fatalf("expected file source after reload, got %s", got)
	}
}
