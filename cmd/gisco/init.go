package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"gisco/internal/config"
	"gisco/internal/widget"
)

// knownThemes is the theme list offered by the wizard. Any other value can
// still be set with --theme or in the config file.
var knownThemes = []string{
	"light",
	"light_high_contrast",
	"dark",
	"dark_high_contrast",
	"dark_dimmed",
	"transparent_dark",
	"preferred_color_scheme",
}

// newInitCommand creates the interactive setup wizard
func newInitCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long:  "Walk through the widget settings and write them to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTTY() {
				return fmt.Errorf("init needs an interactive terminal; set values with flags or GISCO_* environment variables instead")
			}
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			return cli.runInitWizard()
		},
	}
}

func (cli *CLI) runInitWizard() error {
	fmt.Printf("\n%s\n%s\n\n", bold("gisco setup"), gray("Current values are offered as defaults. Ctrl+C aborts without saving."))

	cfg := cli.cfg

	repo, err := (&promptui.Prompt{
		Label:   "Repository (owner/name)",
		Default: cfg.Repo,
		Validate: func(v string) error {
			return widget.Config{Repo: v}.Validate()
		},
	}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.Repo = strings.TrimSpace(repo)

	if cfg.RepoID, err = askOptional("Repository ID (from giscus.app, optional)", cfg.RepoID); err != nil {
		return wizardErr(err)
	}
	if cfg.Category, err = askOptional("Discussion category (optional)", cfg.Category); err != nil {
		return wizardErr(err)
	}
	if cfg.CategoryID, err = askOptional("Category ID (optional)", cfg.CategoryID); err != nil {
		return wizardErr(err)
	}

	mappings := widget.KnownMappings()
	items := make([]string, len(mappings))
	cursor := 0
	for i, m := range mappings {
		items[i] = string(m)
		if string(m) == cfg.Mapping {
			cursor = i
		}
	}
	_, mapping, err := (&promptui.Select{
		Label:     "Discussion mapping",
		Items:     items,
		CursorPos: cursor,
	}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.Mapping = mapping

	switch widget.Mapping(mapping) {
	case widget.MappingSpecific:
		term, err := (&promptui.Prompt{
			Label:   "Term all pages share",
			Default: cfg.Term,
			Validate: func(v string) error {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("a specific mapping needs a term")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return wizardErr(err)
		}
		cfg.Term = term
	case widget.MappingNumber:
		term, err := (&promptui.Prompt{
			Label:   "Discussion number",
			Default: cfg.Term,
			Validate: func(v string) error {
				if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
					return fmt.Errorf("discussion number must be an integer")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return wizardErr(err)
		}
		cfg.Term = strings.TrimSpace(term)
	default:
		cfg.Term = ""
	}

	cursor = 0
	for i, t := range knownThemes {
		if t == cfg.Theme {
			cursor = i
		}
	}
	_, theme, err := (&promptui.Select{
		Label:     "Theme",
		Items:     knownThemes,
		CursorPos: cursor,
	}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.Theme = theme

	lang, err := (&promptui.Prompt{Label: "Language", Default: orDefault(cfg.Lang, "en")}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.Lang = strings.TrimSpace(lang)

	if cfg.ReactionsEnabled, err = askConfirm("Enable reactions for the main post", cfg.ReactionsEnabled); err != nil {
		return wizardErr(err)
	}
	if cfg.EmitMetadata, err = askConfirm("Receive discussion metadata", cfg.EmitMetadata); err != nil {
		return wizardErr(err)
	}

	_, position, err := (&promptui.Select{
		Label:     "Comment box position",
		Items:     []string{widget.InputPositionBottom, widget.InputPositionTop},
		CursorPos: positionCursor(cfg.InputPosition),
	}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.InputPosition = position

	_, loading, err := (&promptui.Select{
		Label:     "Frame loading",
		Items:     []string{string(widget.LoadingEager), string(widget.LoadingLazy)},
		CursorPos: loadingCursor(cfg.Loading),
	}).Run()
	if err != nil {
		return wizardErr(err)
	}
	cfg.Loading = loading

	opts := []config.Option{}
	if cli.configPath != "" {
		opts = append(opts, config.WithConfigPath(cli.configPath))
	}
	path, err := config.SaveWidgetPreferences(cfg, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s Configuration saved to %s\n", green("✓"), bold(path))
	fmt.Printf("%s\n", gray("Run `gisco serve` to try it on the demo site."))
	return nil
}

func askOptional(label, current string) (string, error) {
	v, err := (&promptui.Prompt{Label: label, Default: current}).Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func askConfirm(label string, current bool) (bool, error) {
	def := "n"
	if current {
		def = "y"
	}
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true, Default: def}).Run()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	return false, err
}

// wizardErr turns a ^C into a quiet abort instead of an error trace.
func wizardErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		return fmt.Errorf("setup aborted, nothing saved")
	}
	return err
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func positionCursor(position string) int {
	if position == widget.InputPositionTop {
		return 1
	}
	return 0
}

func loadingCursor(loading string) int {
	if loading == string(widget.LoadingLazy) {
		return 1
	}
	return 0
}
