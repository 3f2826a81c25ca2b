package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/plurcast/credstore/internal/cli"
	"github.com/plurcast/credstore/internal/output"
	"github.com/plurcast/credstore/internal/secure"
)

var (
	version = "dev"
)

func main() {
	defer secure.Purge()

	// Build the parser first so shell completion can intercept before parsing
	cliInstance := &cli.CLI{}
	parser := kong.Must(cliInstance,
		kong.Name("credstore"),
		kong.Description("Multi-account credential storage for the plurcast suite"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	// Run command with bound dependencies
	err = ctx.Run()
	if err != nil {
		// Handle error with proper exit code
		if cliErr, ok := err.(*output.CLIError); ok {
			// We need a formatter instance, create a basic one for error output
			formatter := output.New("plain")
			formatter.PrintError(err)
			if cliErr.Hint != "" {
				formatter.PrintHint(cliErr.Hint)
			}
			secure.Purge()
			os.Exit(cliErr.ExitCode)
		}
		// Unknown error
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		secure.Purge()
		os.Exit(output.ExitGeneral)
	}
}
