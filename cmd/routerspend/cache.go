package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/routerspend/internal/config"
)

func newCacheCommand(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the range-keyed payload cache.",
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached payloads; with --from/--to only the exact range.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := applyFlags(cfg)
			a, err := newApp(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()

			if flagFrom == "" && flagTo == "" {
				if err := a.store.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			}

			window := resolveWindow(cfg)
			if err := a.store.Clear(cmd.Context(), window); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", window.Key())
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := applyFlags(cfg)
			a, err := newApp(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "entries: %d (%d live)\nbytes:   %d\n",
				st.Entries, st.LiveEntries, st.Bytes)
			return nil
		},
	}

	cmd.AddCommand(clear, stats)
	return cmd
}
