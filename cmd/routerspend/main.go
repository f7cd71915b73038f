package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
	"github.com/janekbaraniewski/routerspend/internal/version"
)

var (
	flagFrom  string
	flagTo    string
	flagDebug bool
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "routerspend",
		Short: "routerspend is a terminal cost report for your OpenRouter usage.",
		Long: "routerspend resolves a date window, fetches transaction activity from the\n" +
			"OpenRouter dashboard using your browser session, and breaks spend down per model.",
		Version: version.String(),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := applyFlags(cfg)
			return runDashboard(cfg, newLogger(cfg))
		},
	}

	root.PersistentFlags().StringVar(&flagFrom, "from", "", "start date (YYYY-MM-DD)")
	root.PersistentFlags().StringVar(&flagTo, "to", "", "end date (YYYY-MM-DD)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging and the short-lived dev cache")

	root.AddCommand(newReportCommand(cfg))
	root.AddCommand(newCacheCommand(cfg))
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func applyFlags(cfg config.Config) config.Config {
	if flagDebug {
		cfg.Debug = true
	}
	return cfg
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// resolveWindow layers the boundary sources: CLI flags first, then env vars,
// then configured defaults, falling back to the current calendar month.
func resolveWindow(cfg config.Config) core.DateRange {
	return core.ResolveRange(time.Now(),
		core.RangeSource{From: flagFrom, To: flagTo},
		core.RangeSource{From: os.Getenv("ROUTERSPEND_FROM"), To: os.Getenv("ROUTERSPEND_TO")},
		core.RangeSource{From: cfg.Range.DefaultFrom, To: cfg.Range.DefaultTo},
	)
}

func cachePath() string {
	return filepath.Join(config.ConfigDir(), "cache.db")
}
