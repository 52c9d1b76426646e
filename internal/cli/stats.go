// stats.go implements the "consultprep stats" and "consultprep history"
// commands.
package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/consultprep-dev/consultprep/internal/stats"
	"github.com/consultprep-dev/consultprep/internal/tui/views"
)

func newStatsCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show your practice dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			entries, err := ws.store.History(cmd.Context(), 0)
			if err != nil {
				return err
			}
			agg := stats.Compute(entries, ws.statsOptions())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(agg)
			}

			fmt.Fprintf(out, "Cases completed: %d\n", agg.Count)
			fmt.Fprintf(out, "Average score:   %d\n", agg.Average)
			fmt.Fprintf(out, "Hours practiced: %.1f\n", agg.HoursPracticed)
			fmt.Fprintf(out, "XP:              %d\n", agg.XP)
			if len(agg.Trend) > 0 {
				trend := make([]string, len(agg.Trend))
				for i, s := range agg.Trend {
					trend[i] = strconv.Itoa(s)
				}
				fmt.Fprintf(out, "Trend:           %s  %s\n", views.Sparkline(agg.Trend), strings.Join(trend, " "))
			}
			fmt.Fprintln(out, "Skills:")
			for _, name := range []string{stats.SkillStructuring, stats.SkillQuantitative, stats.SkillCommunication} {
				fmt.Fprintf(out, "  %-22s %d\n", name, agg.Skills[name])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the aggregate as JSON")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit    int
		sessions bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished sessions",
		Long: `List recorded scores, oldest first. With --sessions, list every practice
session including unfinished ones, most recently active first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			ws, err := openWorkspace(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer ws.Close()
			out := cmd.OutOrStdout()

			if sessions {
				list, err := ws.store.ListSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No sessions yet.")
					return nil
				}
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("SESSION", "CASE", "STAGE", "MESSAGES", "UPDATED", "FINISHED")
				for _, s := range list {
					t.Row(shortID(s.ID), s.Company, s.Stage, strconv.Itoa(s.Messages),
						s.UpdatedAt.Local().Format("2006-01-02 15:04"), strconv.FormatBool(s.Finished))
				}
				fmt.Fprintln(out, t.String())
				return nil
			}

			entries, err := ws.store.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No finished sessions yet. Run 'consultprep practice' and end with /end.")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("DATE", "CASE", "SCORE", "STRUCTURE", "ANALYSIS", "COMMUNICATION", "FEEDBACK")
			for _, e := range entries {
				t.Row(e.Time.Local().Format("2006-01-02 15:04"), e.Case, strconv.Itoa(e.Score),
					strconv.Itoa(e.Breakdown.Structure), strconv.Itoa(e.Breakdown.Analysis),
					strconv.Itoa(e.Breakdown.Communication), e.Feedback)
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many rows (0 = all)")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "List practice sessions instead of scores")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
