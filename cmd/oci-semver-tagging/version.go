package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.BuildVersion=...".
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short, _ := cmd.Flags().GetBool("short"); short {
				_, err := fmt.Fprintln(a.stdout, BuildVersion)
				return err
			}
			_, err := fmt.Fprintf(a.stdout, "oci-semver-tagging %s\nCommit: %s\nBuilt: %s\n", BuildVersion, BuildCommit, BuildDate)
			return err
		},
	}
	cmd.Flags().BoolP("short", "s", false, "show only the version number")
	return cmd
}
