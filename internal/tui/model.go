package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
	"github.com/janekbaraniewski/routerspend/internal/render"
	"github.com/janekbaraniewski/routerspend/internal/report"
)

// The pipeline talks to the dashboard through three message types: an
// informational status line, a finished aggregation, or an error string.
type (
	StatusMsg string
	ReportMsg core.Result
	ErrorMsg  struct{ Err error }
)

// ConfigMsg reinjects a rebuilt pipeline after a config file change.
type ConfigMsg struct {
	Service *report.Service
	Render  config.RenderConfig
}

const fetchTimeout = 60 * time.Second

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type Model struct {
	svc    *report.Service
	window core.DateRange
	cfg    config.RenderConfig

	result  core.Result
	status  string
	err     error
	loaded  bool
	loading bool

	sortBy  render.SortOrder
	showAll bool
	width   int
}

func NewModel(svc *report.Service, window core.DateRange, cfg config.RenderConfig) Model {
	return Model{
		svc:    svc,
		window: window,
		cfg:    cfg,
		sortBy: render.SortOrder(cfg.SortBy),
		status: "loading…",
	}
}

func (m Model) Init() tea.Cmd {
	return fetchCmd(m.svc, m.window, false)
}

func fetchCmd(svc *report.Service, window core.DateRange, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		var (
			res core.Result
			err error
		)
		if refresh {
			res, err = svc.Refresh(ctx, window)
		} else {
			res, err = svc.Report(ctx, window)
		}
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return ReportMsg(res)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case ConfigMsg:
		m.svc = msg.Service
		m.cfg = msg.Render
		m.status = "config reloaded"
		return m, nil

	case ReportMsg:
		m.result = core.Result(msg)
		m.loaded = true
		m.loading = false
		m.err = nil
		m.status = ""
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		m.loading = false
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = "refreshing…"
			return m, fetchCmd(m.svc, m.window, true)
		case "s":
			if m.sortBy == render.SortByTokens {
				m.sortBy = render.SortByCost
			} else {
				m.sortBy = render.SortByTokens
			}
			return m, nil
		case "m":
			m.showAll = !m.showAll
			return m, nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	var body string

	switch {
	case m.err != nil:
		body = errorStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	case !m.loaded:
		body = statusStyle.Render(m.status) + "\n"
	default:
		out, err := render.Report(m.result, render.Options{
			Title:   fmt.Sprintf("OpenRouter spend  %s", m.window.Key()),
			TopN:    m.cfg.TopN,
			SortBy:  m.sortBy,
			ShowAll: m.showAll,
			Chart:   true,
			Width:   m.width,
		})
		switch {
		case err == render.ErrNoData:
			body = statusStyle.Render("no usage data for this range") + "\n"
		case err != nil:
			body = errorStyle.Render(fmt.Sprintf("error: %v", err)) + "\n"
		default:
			body = out
		}
	}

	if m.status != "" && m.loaded {
		body += statusStyle.Render(m.status) + "\n"
	}

	body += "\n" + helpStyle.Render("r refresh · s sort (cost/tokens) · m show more · q quit")
	return body
}
