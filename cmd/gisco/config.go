package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newConfigCommand creates the config subcommand
func newConfigCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect the effective gisco configuration and where each value came from",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			cli.showConfig()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Println(used)
				return nil
			}
			fmt.Printf("%s (not created yet, run %s)\n", "~/.gisco-config.json", cyan("gisco init"))
			return nil
		},
	})

	return cmd
}

func (cli *CLI) showConfig() {
	cfg := cli.cfg
	out := fmt.Sprintf("\n%s\n", bold("Current Configuration:"))

	row := func(label, field, value string) string {
		if value == "" {
			value = gray("(unset)")
		} else {
			value = blue(value)
		}
		return fmt.Sprintf("  %-18s %s %s\n", label, value, gray("["+string(cli.meta.Source(field))+"]"))
	}

	out += fmt.Sprintf("%s\n", bold("Widget"))
	out += row("Repo", "repo", cfg.Repo)
	out += row("Repo ID", "repo_id", cfg.RepoID)
	out += row("Category", "category", cfg.Category)
	out += row("Category ID", "category_id", cfg.CategoryID)
	out += row("Mapping", "mapping", cfg.Mapping)
	out += row("Term", "term", cfg.Term)
	out += row("Theme", "theme", cfg.Theme)
	out += row("Lang", "lang", cfg.Lang)
	out += row("Reactions", "reactions_enabled", fmt.Sprintf("%t", cfg.ReactionsEnabled))
	out += row("Emit Metadata", "emit_metadata", fmt.Sprintf("%t", cfg.EmitMetadata))
	out += row("Input Position", "input_position", cfg.InputPosition)
	out += row("Loading", "loading", cfg.Loading)

	out += fmt.Sprintf("\n%s\n", bold("Host"))
	out += row("Remote Origin", "remote_origin", cfg.RemoteOrigin)
	out += row("Element ID", "element_id", cfg.ElementID)
	out += row("Storage Dir", "storage_dir", cfg.StorageDir)

	out += fmt.Sprintf("\n%s\n", bold("Relay"))
	out += row("Listen", "relay_listen_addr", cfg.RelayListenAddr)
	out += row("Token", "relay_token", maskToken(cfg.RelayToken))
	out += row("Timeout", "relay_timeout_seconds", fmt.Sprintf("%ds", cfg.RelayTimeoutSeconds))

	out += fmt.Sprintf("\n%s\n", bold("Preview"))
	out += row("Listen", "preview_listen_addr", cfg.PreviewListenAddr)
	out += row("Site", "preview_site_path", cfg.PreviewSitePath)
	out += row("Allowed Origins", "preview_allowed_origins", strings.Join(cfg.PreviewAllowedOrigins, ", "))

	if used := viper.ConfigFileUsed(); used != "" {
		out += fmt.Sprintf("\n%s %s\n", gray("file:"), gray(used))
	}

	fmt.Print(out)
}

// maskToken hides most of a secret while keeping it recognizable.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	runes := []rune(token)
	if len(runes) < 8 {
		return "****"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}
