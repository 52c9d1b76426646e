// cases.go implements the "consultprep cases" command listing the library.
package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/consultprep-dev/consultprep/internal/cases"
)

func newCasesCmd(_ *options) *cobra.Command {
	var f cases.Filter
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List practice cases",
		Long: `List the case library. Filters combine; "All" or an empty value
matches everything. --query searches titles and descriptions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := cases.Builtin()
			if err != nil {
				return err
			}
			entries := lib.Filter(f)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cases match.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "TITLE", "INDUSTRY", "DIFFICULTY", "TYPE", "MIN")
			for _, e := range entries {
				t.Row(e.ID, e.Title, e.Industry, e.Difficulty, e.Type, strconv.Itoa(e.Minutes))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "Search titles and descriptions")
	cmd.Flags().StringVar(&f.Difficulty, "difficulty", "", "Beginner, Intermediate or Advanced")
	cmd.Flags().StringVar(&f.Industry, "industry", "", "Industry, e.g. Technology")
	cmd.Flags().StringVar(&f.Type, "type", "", "Case type, e.g. Profitability")
	return cmd
}
