package cli

import (
	"os"

	"golang.org/x/term"
)

// Globals holds global flags available to all commands
type Globals struct {
	Output  string `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"CREDSTORE_OUTPUT"`
	Verbose bool   `help:"Verbose output" short:"v" env:"CREDSTORE_VERBOSE"`
	NoInput bool   `help:"Disable interactive prompts (fail instead)" env:"CREDSTORE_NO_INPUT"`
	Force   bool   `help:"Skip confirmation prompts for destructive operations" env:"CREDSTORE_FORCE"`
}

// ResolvedOutput returns the effective output mode
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput() string {
	if g.Output != "auto" {
		return g.Output
	}

	// Detect if stdout is a TTY
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}
