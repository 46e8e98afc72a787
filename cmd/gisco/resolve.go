package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gisco/internal/page"
	"gisco/internal/widget"
)

// newResolveCommand creates the resolve subcommand
func newResolveCommand(cli *CLI) *cobra.Command {
	var (
		all      bool
		htmlFile string
	)

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Fetch a page and show the discussion term it maps to",
		Long: `Fetch the page, extract its title and meta tags, and show the term the
configured mapping resolves to, together with the widget frame address
that would be used. With --all, every mapping mode is listed.

With --html, the metadata is read from a local file instead of the
network and the URL argument only provides the address and pathname.
Useful against a static site build before it is deployed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cli.runResolve(ctx, args[0], htmlFile, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show the term under every mapping mode")
	cmd.Flags().StringVar(&htmlFile, "html", "", "Read page HTML from this file instead of fetching")
	return cmd
}

func (cli *CLI) runResolve(ctx context.Context, pageURL, htmlFile string, all bool) error {
	info, err := cli.describePage(ctx, pageURL, htmlFile)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", bold("Page"))
	printField("url", info.URL)
	printField("title", info.Title)
	printField("og:title", info.OGTitle)
	printField("description", info.Description)
	printField("pathname", info.Pathname)

	wcfg := cli.cfg.WidgetConfig()

	if all {
		fmt.Printf("\n%s\n", bold("Terms by mapping"))
		for _, m := range widget.KnownMappings() {
			term := widget.ResolveTerm(m, info, wcfg.Term)
			marker := " "
			if m == wcfg.Mapping {
				marker = green("*")
			}
			if term == "" {
				fmt.Printf("%s %-10s %s\n", marker, string(m), gray("(empty)"))
				continue
			}
			fmt.Printf("%s %-10s %s\n", marker, string(m), cyan(term))
		}
	} else {
		fmt.Printf("\n%s\n", bold("Resolution"))
		printField("mapping", string(wcfg.Mapping))
		term := widget.ResolveTerm(wcfg.Mapping, info, wcfg.Term)
		printField("term", term)
		if number := widget.ResolveNumber(wcfg.Mapping, wcfg.Term); number != "" {
			printField("number", number)
		}
	}

	if err := wcfg.Validate(); err != nil {
		fmt.Printf("\n%s no frame address without a repository: %v\n", yellow("!"), err)
		fmt.Printf("%s\n", gray("Set one with `gisco init` or --repo."))
		return nil
	}

	address := widget.BuildAddress(cli.cfg.RemoteOrigin, wcfg, info, "", cli.cfg.ElementID)
	fmt.Printf("\n%s\n%s\n", bold("Frame address"), address)
	return nil
}

func (cli *CLI) describePage(ctx context.Context, pageURL, htmlFile string) (page.Info, error) {
	if htmlFile != "" {
		f, err := os.Open(htmlFile)
		if err != nil {
			return page.Info{}, err
		}
		defer f.Close()
		info, err := page.Extract(pageURL, f)
		if err != nil {
			return page.Info{}, fmt.Errorf("parse %s: %w", htmlFile, err)
		}
		return info, nil
	}

	fetcher, err := page.NewFetcher(cli.logger)
	if err != nil {
		return page.Info{}, err
	}
	info, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return page.Info{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return info, nil
}

func printField(label, value string) {
	padded := fmt.Sprintf("%-12s", label+":")
	if value == "" {
		fmt.Printf("  %s %s\n", gray(padded), gray("(empty)"))
		return
	}
	fmt.Printf("  %s %s\n", gray(padded), value)
}
