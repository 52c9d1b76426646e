// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model.
// If stdout is a TTY, it runs in alternate screen mode.
// Otherwise it prints a pointer to the line-mode commands.
func Run(m tea.Model) error {
	if IsTTY() {
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		return err
	}
	return runFallback(os.Stdout)
}

func runFallback(w io.Writer) error {
	_, err := fmt.Fprintln(w, "Non-TTY environment detected.\n"+
		"Use 'consultprep practice' for a line-mode interview, "+
		"'consultprep stats' for your dashboard, or 'consultprep serve' for the HTTP API.")
	return err
}
