// Package tui renders plan summaries and progress for the terminal.
// Simple, streaming output; no full-screen UI.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/schollz/progressbar/v3"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
	"github.com/cyclo/millplan/pkg/report"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warn    = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warn)
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	gridStyle    = lipgloss.NewStyle().Padding(0, 1)
	headerStyle  = mutedStyle.Bold(true).Padding(0, 1)
)

const (
	rule     = "  ─────────────────────────────────────"
	barWidth = 20
)

// PrintHeader prints the program banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  MILLPLAN")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Spinning mill production planner"))
	fmt.Fprintln(w)
}

// PrintSummary prints the headline figures of a plan followed by the
// per-line utilization and the unmatched orders.
func PrintSummary(w io.Writer, plan *model.Plan, elapsed time.Duration) {
	s := report.Summarize(plan)

	fmt.Fprintln(w)
	if s.UnscheduledKg > 0 {
		fmt.Fprintln(w, warnStyle.Render("  ! PLAN INCOMPLETE: horizon exhausted"))
	} else {
		fmt.Fprintln(w, successStyle.Render("  ✓ PLAN COMPLETE"))
	}
	fmt.Fprintln(w)

	kv(w, "Run:", s.RunID)
	kv(w, "Orders:", fmt.Sprintf("%d PI, %d batches, %d records", s.TotalOrders, s.Batches, s.Records))
	kv(w, "Allocated:", formatKg(s.AllocatedKg))
	if s.UnscheduledKg > 0 {
		kv(w, "Unscheduled:", warnStyle.Render(formatKg(s.UnscheduledKg)))
	}
	if s.Samples > 0 {
		kv(w, "Samples:", fmt.Sprintf("%d (%s)", s.Samples, formatKg(s.SampleKg)))
	}
	if !s.FirstDay.IsZero() {
		kv(w, "Window:", fmt.Sprintf("%s → %s", s.FirstDay.Format("2006-01-02"), s.LastDay.Format("2006-01-02")))
	}
	if !s.Completion.IsZero() {
		kv(w, "Completion:", s.Completion.Format("2006-01-02 15:04"))
	}
	kv(w, "Changeovers:", fmt.Sprintf("%d", s.Changeovers))
	kv(w, "Utilization:", fmt.Sprintf("%.2f%% average", s.AvgUtilization))
	if elapsed > 0 {
		kv(w, "Time:", formatDuration(elapsed))
	}

	if rows := report.LineAverages(plan.Utilization); len(rows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render("▸ LINE UTILIZATION"))
		for _, r := range rows {
			fmt.Fprintf(w, "  %s %s %s\n",
				cellStyle.Render(fmt.Sprintf("%-8s", r.Line)),
				bar(r.UtilPct),
				mutedStyle.Render(fmt.Sprintf("%6.2f%%", r.UtilPct)))
		}
	}

	if len(plan.Unmatched) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render(fmt.Sprintf("▸ NOT MATCHED (%d)", len(plan.Unmatched))))
		for _, u := range plan.Unmatched {
			fmt.Fprintf(w, "  %s %s\n", cellStyle.Render(u.OrderID), mutedStyle.Render(u.Reason))
		}
	}
	fmt.Fprintln(w)
}

// PrintLines prints the line table and pool membership.
func PrintLines(w io.Writer, cfg *config.Config) {
	pools := make(map[string][]string)
	for _, name := range cfg.Pools.Main {
		pools[name] = append(pools[name], model.PoolMain)
	}
	for _, name := range cfg.Pools.Small {
		pools[name] = append(pools[name], model.PoolSmall)
	}

	rows := make([][]string, 0, len(cfg.Lines))
	for _, l := range cfg.Lines {
		rows = append(rows, []string{
			l.Name,
			fmt.Sprintf("%d", l.Machines),
			fmt.Sprintf("%d", l.Spindles()),
			fmt.Sprintf("%.0f", l.DailyCapacityKg),
			fmt.Sprintf("%.2f", l.ShiftCapacity(len(cfg.Shifts))),
			strings.Join(pools[l.Name], ","),
		})
	}
	PrintTable(w, "LINES", []string{"Line", "Machines", "Spindles", "Kg/day", "Kg/shift", "Pools"}, rows)

	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ SHIFTS"))
	for _, s := range cfg.Shifts {
		start := time.Duration(s.StartMinute) * time.Minute
		end := start + time.Duration(s.DurationMinutes)*time.Minute
		fmt.Fprintf(w, "  %-3s %s - %s\n", s.Name, clock(start), clock(end))
	}
	fmt.Fprintln(w)
}

// PrintTable renders rows under a section title with a muted header and
// border. Cells are printed as given.
func PrintTable(w io.Writer, title string, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return gridStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ "+title))
	fmt.Fprintln(w, t.Render())
}

// PrintExported reports an artifact written by the CLI.
func PrintExported(w io.Writer, kind, location string) {
	fmt.Fprintf(w, "  %s %s %s\n", successStyle.Render("✓"), mutedStyle.Render(kind+":"), location)
}

// PrintError prints a failure line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, accentStyle.Render("  ✗ "+err.Error()))
}

// ShowProgress creates a progress bar over the export steps.
func ShowProgress(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func kv(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%-13s", key)), titleStyle.Render(value))
}

func bar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return successStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func formatKg(kg float64) string {
	if kg >= 1000 {
		return fmt.Sprintf("%.2f t", kg/1000)
	}
	return fmt.Sprintf("%.2f kg", kg)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
