package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/tui"
)

// sparkBlocks are the bar glyphs for scores 0..100, lowest first.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// DashboardModel shows the practice aggregate and recent sessions.
type DashboardModel struct {
	agg    stats.Aggregate
	recent []interview.HistoryEntry
	errMsg string
	width  int
	height int
}

// NewDashboardModel creates an empty dashboard.
func NewDashboardModel(width, height int) DashboardModel {
	return DashboardModel{agg: stats.Compute(nil, stats.Options{}), width: width, height: height}
}

// Init implements tea.Model.
func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Update handles dashboard messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tui.StatsLoadedMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.agg = msg.Aggregate
		m.recent = msg.Recent
	}
	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(tui.TitleStyle.Render("Dashboard"))
	b.WriteString("\n\n")

	if m.errMsg != "" {
		b.WriteString(tui.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Cases Completed", fmt.Sprintf("%d", m.agg.Count)),
		card("Average Score", fmt.Sprintf("%d", m.agg.Average)),
		card("Hours Practiced", fmt.Sprintf("%.1f", m.agg.HoursPracticed)),
		card("XP", fmt.Sprintf("%d", m.agg.XP)),
	))
	b.WriteString("\n\n")

	b.WriteString(tui.TitleStyle.Render("Score Trend"))
	b.WriteString("\n")
	if len(m.agg.Trend) == 0 {
		b.WriteString(tui.DimStyle.Render("No sessions yet. Finish a case to start your trend."))
	} else {
		b.WriteString(tui.SuccessStyle.Render(Sparkline(m.agg.Trend)))
		b.WriteString(tui.DimStyle.Render(fmt.Sprintf("  last %d", len(m.agg.Trend))))
	}
	b.WriteString("\n\n")

	b.WriteString(tui.TitleStyle.Render("Skills"))
	b.WriteString("\n")
	for _, name := range []string{stats.SkillStructuring, stats.SkillQuantitative, stats.SkillCommunication} {
		b.WriteString(fmt.Sprintf("%-22s %s %3d\n", name, bar(m.agg.Skills[name], 20), m.agg.Skills[name]))
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(tui.TitleStyle.Render("Recent Sessions"))
		b.WriteString("\n")
		for i := len(m.recent) - 1; i >= 0; i-- {
			e := m.recent[i]
			b.WriteString(fmt.Sprintf("%s  %-32s %3d  %s\n",
				e.Time.Format("Jan 02 15:04"), e.Case, e.Score, tui.DimStyle.Render(e.Feedback)))
		}
	}

	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render("tab: cases · ctrl+c twice: exit"))
	return tui.BoxStyle.Width(m.width - 4).Render(b.String())
}

func card(label, value string) string {
	return tui.CardStyle.Render(tui.TitleStyle.Render(value) + "\n" + tui.DimStyle.Render(label))
}

// Sparkline renders scores in [0,100] as block glyphs.
func Sparkline(scores []int) string {
	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, s := range scores {
		s = max(0, min(100, s))
		b.WriteRune(sparkBlocks[s*top/100])
	}
	return b.String()
}

// bar renders v in [0,100] as a progress bar of width cells.
func bar(v, width int) string {
	v = max(0, min(100, v))
	full := v * width / 100
	return tui.ProgressFullStyle.Render(strings.Repeat("█", full)) +
		tui.ProgressEmptyStyle.Render(strings.Repeat("░", width-full))
}
