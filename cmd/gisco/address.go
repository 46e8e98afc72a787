package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gisco/internal/page"
	"gisco/internal/widget"
)

// newAddressCommand creates the address subcommand
func newAddressCommand(cli *CLI) *cobra.Command {
	var (
		pageURL     string
		title       string
		ogTitle     string
		description string
		pathname    string
		session     string
	)

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Build a widget frame address from page details",
		Long: `Build the frame address for a page described entirely by flags, without
touching the network. Useful for static site generators that want to
render the iframe source at build time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}

			wcfg := cli.cfg.WidgetConfig()
			if err := wcfg.Validate(); err != nil {
				return err
			}

			info := page.Info{
				URL:         pageURL,
				Title:       title,
				OGTitle:     ogTitle,
				Description: description,
				Pathname:    pathname,
			}
			fmt.Println(widget.BuildAddress(cli.cfg.RemoteOrigin, wcfg, info, session, cli.cfg.ElementID))
			return nil
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL")
	cmd.Flags().StringVar(&title, "title", "", "Page title")
	cmd.Flags().StringVar(&ogTitle, "og-title", "", "og:title meta content")
	cmd.Flags().StringVar(&description, "description", "", "description meta content")
	cmd.Flags().StringVar(&pathname, "pathname", "", "Page pathname")
	cmd.Flags().StringVar(&session, "session", "", "Session token to embed")
	return cmd
}
