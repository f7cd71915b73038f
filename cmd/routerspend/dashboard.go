package main

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/tui"
)

func runDashboard(cfg config.Config, log *logrus.Logger) error {
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	current := a
	defer func() {
		mu.Lock()
		current.Close()
		mu.Unlock()
	}()

	window := resolveWindow(cfg)
	model := tui.NewModel(a.svc, window, cfg.Render)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Single subscription point: a changed config file rebuilds the pipeline
	// and hands the dashboard the new service.
	stop, err := config.Watch(config.ConfigPath(), log, func(next config.Config) {
		next = applyFlags(next)
		rebuilt, err := newApp(next, newLogger(next))
		if err != nil {
			log.WithError(err).Warn("config change ignored, pipeline rebuild failed")
			return
		}
		program.Send(tui.ConfigMsg{Service: rebuilt.svc, Render: next.Render})

		mu.Lock()
		old := current
		current = rebuilt
		mu.Unlock()
		old.Close()
	})
	if err != nil {
		log.WithError(err).Warn("config watching disabled")
	} else {
		defer stop()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
