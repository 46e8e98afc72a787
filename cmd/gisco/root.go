package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"gisco/internal/config"
	"gisco/internal/logging"
	"gisco/internal/observability"
)

// isTTY checks if we're running in a terminal
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Color functions for terminal output
var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// CLI holds the command line interface state shared by all subcommands.
type CLI struct {
	root *cobra.Command

	cfg    config.RuntimeConfig
	meta   config.Metadata
	obs    observability.Config
	logger logging.Logger

	configPath string
	obsPath    string
	logFile    string
	verbose    bool
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	cli := &CLI{}

	rootCmd := &cobra.Command{
		Use:   "gisco",
		Short: "Embed giscus comment widgets into local pages",
		Long: fmt.Sprintf(`%s

%s drives a giscus comment widget from outside the browser. A small
shim script connects each open page back to a local relay endpoint;
gisco resolves the page's discussion term, restores the stored session,
builds the widget frame address and keeps the embedded frame sized and
configured from the command line.

%s
  gisco init                              # Configure repo and mapping
  gisco serve                             # Relay + demo site + embedder
  gisco relay --watch                     # Relay only, with a signal feed
  gisco resolve https://example.com/post  # Show the term a page maps to
  gisco address --pathname /post          # Print a frame address offline
  gisco config show                       # Effective config and sources`,
			bold("gisco "+appVersion),
			bold("gisco"),
			bold("EXAMPLES:")),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cli.root = rootCmd

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cli.configPath, "config", "", "Config file (default ~/.gisco-config.json)")
	rootCmd.PersistentFlags().StringVar(&cli.obsPath, "observability-config", "", "Observability config file (default ~/.config/gisco/gisco.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&cli.logFile, "log-file", "", "Also write logs to this file")

	// Widget overrides. Anything not set here falls back to env, file, defaults.
	rootCmd.PersistentFlags().String("repo", "", "Repository to host discussions (owner/name)")
	rootCmd.PersistentFlags().String("repo-id", "", "Repository node ID")
	rootCmd.PersistentFlags().String("category", "", "Discussion category name")
	rootCmd.PersistentFlags().String("category-id", "", "Discussion category node ID")
	rootCmd.PersistentFlags().String("mapping", "", "Term mapping: pathname, url, title, og:title, specific, number")
	rootCmd.PersistentFlags().String("term", "", "Explicit term (specific mapping) or discussion number")
	rootCmd.PersistentFlags().String("theme", "", "Widget theme")
	rootCmd.PersistentFlags().String("lang", "", "Widget language")
	rootCmd.PersistentFlags().Bool("reactions", true, "Show reactions for the main post")
	rootCmd.PersistentFlags().Bool("emit-metadata", false, "Receive discussion metadata from the widget")
	rootCmd.PersistentFlags().String("input-position", "", "Comment box position: top or bottom")
	rootCmd.PersistentFlags().String("loading", "", "Frame loading: eager or lazy")
	rootCmd.PersistentFlags().String("remote-origin", "", "Widget service origin")
	rootCmd.PersistentFlags().String("element-id", "", "Host element identifier sent to the widget")
	rootCmd.PersistentFlags().String("storage-dir", "", "Session storage directory")
	rootCmd.PersistentFlags().String("relay-listen", "", "Relay listen address")
	rootCmd.PersistentFlags().String("relay-token", "", "Relay handshake token")
	rootCmd.PersistentFlags().String("preview-listen", "", "Preview site listen address")
	rootCmd.PersistentFlags().String("site", "", "Preview site definition file (YAML)")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand(cli))
	rootCmd.AddCommand(newServeCommand(cli))
	rootCmd.AddCommand(newRelayCommand(cli))
	rootCmd.AddCommand(newResolveCommand(cli))
	rootCmd.AddCommand(newAddressCommand(cli))
	rootCmd.AddCommand(newConfigCommand(cli))
	rootCmd.AddCommand(newVersionCommand())

	// Configure viper
	viper.SetConfigName(".gisco-config")
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	return rootCmd
}

// initialize loads runtime configuration and sets up logging. Every
// subcommand that touches config or the network calls this first.
func (cli *CLI) initialize(cmd *cobra.Command) error {
	if cli.configPath != "" {
		viper.SetConfigFile(cli.configPath)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	opts := []config.Option{
		config.WithEnv(config.DefaultEnvLookupWithAliases()),
		config.WithOverrides(cli.overridesFromFlags()),
	}
	if used := viper.ConfigFileUsed(); used != "" {
		opts = append(opts, config.WithConfigPath(used))
	}
	cfg, meta, err := config.Load(opts...)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	cli.meta = meta

	obs, err := observability.LoadConfig(cli.obsPath)
	if err != nil {
		return fmt.Errorf("observability config: %w", err)
	}
	cli.obs = obs

	level := logging.ParseLevel(obs.Logging.Level)
	if cli.verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(os.Stderr, level)
	logPath := cli.logFile
	if logPath == "" {
		logPath = obs.Logging.File
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger = logging.Multi(logger, logging.New(f, level))
	}
	cli.logger = logger

	return nil
}

// overridesFromFlags lifts explicitly set command line flags into config
// overrides. Unchanged flags stay nil so file and env values survive.
func (cli *CLI) overridesFromFlags() config.Overrides {
	flags := cli.root.PersistentFlags()
	o := config.Overrides{}

	str := func(name string, dst **string) {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	boolean := func(name string, dst **bool) {
		if flags.Changed(name) {
			v, _ := flags.GetBool(name)
			*dst = &v
		}
	}

	str("remote-origin", &o.RemoteOrigin)
	str("storage-dir", &o.StorageDir)
	str("element-id", &o.ElementID)
	str("repo", &o.Repo)
	str("repo-id", &o.RepoID)
	str("category", &o.Category)
	str("category-id", &o.CategoryID)
	str("mapping", &o.Mapping)
	str("term", &o.Term)
	str("theme", &o.Theme)
	str("lang", &o.Lang)
	boolean("reactions", &o.ReactionsEnabled)
	boolean("emit-metadata", &o.EmitMetadata)
	str("input-position", &o.InputPosition)
	str("loading", &o.Loading)
	str("relay-listen", &o.RelayListenAddr)
	str("relay-token", &o.RelayToken)
	str("preview-listen", &o.PreviewListen)
	str("site", &o.PreviewSitePath)

	return o
}
