package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/routerspend/internal/appupdate"
	"github.com/janekbaraniewski/routerspend/internal/version"
)

func newVersionCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "routerspend "+version.String())
			if !check {
				return nil
			}

			res, err := appupdate.Check(context.Background(), appupdate.CheckOptions{
				CurrentVersion: version.Version,
			})
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			switch {
			case res.CurrentVersion == "":
				fmt.Fprintln(cmd.OutOrStdout(), "dev build, update check skipped")
			case res.UpdateAvailable:
				fmt.Fprintf(cmd.OutOrStdout(), "update available: %s\n", res.LatestVersion)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check for a newer release")
	return cmd
}
