package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/routerspend/internal/core"
)

// ErrNoData marks an empty aggregate: nothing to render, the caller decides
// whether that means "no usage in range" or a failed fetch.
var ErrNoData = errors.New("no usage data to render")

type SortOrder string

const (
	SortByCost   SortOrder = "cost"
	SortByTokens SortOrder = "tokens"
)

type Options struct {
	Title   string
	TopN    int
	SortBy  SortOrder
	ShowAll bool
	Chart   bool
	Width   int
}

// Row is one model line of the breakdown.
type Row struct {
	Model  string
	Cost   float64
	Tokens int
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("243"))
	totalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// Rows flattens the aggregate into a slice sorted by the requested order,
// cost and token sorts independent of one another. Ties break on model name
// so output is stable.
func Rows(res core.Result, order SortOrder) []Row {
	rows := lo.MapToSlice(res.Costs, func(model string, cost float64) Row {
		return Row{Model: model, Cost: cost, Tokens: res.Tokens[model]}
	})

	sort.Slice(rows, func(i, j int) bool {
		if order == SortByTokens {
			if rows[i].Tokens != rows[j].Tokens {
				return rows[i].Tokens > rows[j].Tokens
			}
		} else if rows[i].Cost != rows[j].Cost {
			return rows[i].Cost > rows[j].Cost
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}

// Report formats the aggregation result as a per-model breakdown. An empty
// aggregate returns ErrNoData; a non-finite total cost is rejected outright.
func Report(res core.Result, opts Options) (string, error) {
	if res.Empty() {
		return "", ErrNoData
	}

	total := res.TotalCost()
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return "", fmt.Errorf("total cost is not finite: %v", total)
	}

	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.SortBy == "" {
		opts.SortBy = SortByCost
	}
	if opts.Width <= 0 {
		opts.Width = 72
	}

	rows := Rows(res, opts.SortBy)
	shown := rows
	hidden := 0
	if !opts.ShowAll && len(rows) > opts.TopN {
		shown = rows[:opts.TopN]
		hidden = len(rows) - opts.TopN
	}

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(titleStyle.Render(opts.Title))
		b.WriteString("\n\n")
	}

	modelWidth := lo.Max(append(lo.Map(shown, func(r Row, _ int) int { return len(r.Model) }), len("model")))

	b.WriteString(headStyle.Render(fmt.Sprintf("%-*s  %12s  %12s  %7s", modelWidth, "model", "cost", "tokens", "share")))
	b.WriteString("\n")
	for _, row := range shown {
		share := 0.0
		if total > 0 {
			share = row.Cost / total * 100
		}
		b.WriteString(fmt.Sprintf("%-*s  %12s  %12d  %6.1f%%\n",
			modelWidth, row.Model, fmt.Sprintf("$%.4f", row.Cost), row.Tokens, share))
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("total  $%.4f  ·  %d tokens", total, res.TotalTokens)))
	b.WriteString("\n")
	if res.Skipped > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d records skipped", res.Skipped)))
		b.WriteString("\n")
	}
	if hidden > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more models (show all to expand)", hidden)))
		b.WriteString("\n")
	}

	if opts.Chart && len(shown) > 0 {
		b.WriteString("\n")
		b.WriteString(costChart(shown, opts.Width))
		b.WriteString("\n")
	}

	return b.String(), nil
}

func costChart(rows []Row, width int) string {
	data := lo.Map(rows, func(r Row, _ int) barchart.BarData {
		return barchart.BarData{
			Label: truncateLabel(r.Model, 12),
			Values: []barchart.BarValue{
				{Name: r.Model, Value: r.Cost, Style: barStyle},
			},
		}
	})

	bc := barchart.New(width, len(rows)+2, barchart.WithHorizontalBars())
	bc.PushAll(data)
	bc.Draw()
	return bc.View()
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
