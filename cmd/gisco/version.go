package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// appVersion is stamped by the release build; the default marks dev builds.
var appVersion = "0.3.0-dev"

// newVersionCommand creates the version subcommand
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gisco version %s\n", appVersion)
		},
	}
}
