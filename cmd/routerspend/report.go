package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
	"github.com/janekbaraniewski/routerspend/internal/render"
)

func newReportCommand(cfg config.Config) *cobra.Command {
	var (
		showAll bool
		refresh bool
		sortBy  string
		chart   bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a one-shot per-model spend breakdown to stdout.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := applyFlags(cfg)
			log := newLogger(cfg)

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			window := resolveWindow(cfg)

			var res core.Result
			if refresh {
				res, err = a.svc.Refresh(cmd.Context(), window)
			} else {
				res, err = a.svc.Report(cmd.Context(), window)
			}
			if err != nil {
				return err
			}

			order := render.SortOrder(cfg.Render.SortBy)
			if sortBy != "" {
				order = render.SortOrder(sortBy)
			}

			out, err := render.Report(res, render.Options{
				Title:   fmt.Sprintf("OpenRouter spend  %s", window.Key()),
				TopN:    cfg.Render.TopN,
				SortBy:  order,
				ShowAll: showAll,
				Chart:   chart,
			})
			if err == render.ErrNoData {
				fmt.Fprintf(cmd.ErrOrStderr(), "no usage data for %s\n", window.Key())
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "show every model, not just the top entries")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache for this range")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort order: cost or tokens")
	cmd.Flags().BoolVar(&chart, "chart", false, "append a cost bar chart")

	return cmd
}
