package cli

import (
	"fmt"
	"os"

	"github.com/plurcast/credstore/internal/accounts"
	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/output"
)

// accountRow is one line of account list output
type accountRow struct {
	Service string `json:"service"`
	Account string `json:"account"`
	Active  string `json:"active,omitempty"`
}

// AccountListCmd implements the account list command
type AccountListCmd struct {
	Service string `arg:"" optional:"" help:"Limit to one service"`
}

// Run executes the account list command
func (cmd *AccountListCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	registry := accounts.Open(cfg.ResolvedStateFile())

	services := registry.Services()
	if cmd.Service != "" {
		services = []string{cmd.Service}
	}

	var rows []accountRow
	for _, service := range services {
		active := registry.ActiveAccount(service)
		for _, account := range registry.Accounts(service) {
			row := accountRow{Service: service, Account: account}
			if account == active {
				row.Active = "*"
			}
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "No accounts registered\n")
		fmt.Fprintf(os.Stderr, "Run 'credstore account add <service> <name>' to register one\n")
		return nil
	}

	return fp.Formatter.PrintList(rows, []output.Column{
		{Name: "Service", Key: "Service"},
		{Name: "Account", Key: "Account"},
		{Name: "Active", Key: "Active"},
	})
}

// AccountAddCmd implements the account add command
type AccountAddCmd struct {
	Service string `arg:"" help:"Service the account belongs to"`
	Name    string `arg:"" help:"Account name to register"`
}

// Run executes the account add command
func (cmd *AccountAddCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	if err := accounts.ValidateName(cmd.Service); err != nil {
		return output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("Invalid service name: %v", err)).
			WithHint("Service names are 1-64 characters from [A-Za-z0-9_-]")
	}

	registry := accounts.Open(cfg.ResolvedStateFile())
	if err := registry.Add(cmd.Service, cmd.Name); err != nil {
		return mapError(err)
	}

	fmt.Fprintf(os.Stderr, "Registered account %q for service %q\n", cmd.Name, cmd.Service)
	return nil
}

// AccountRemoveCmd implements the account remove command
type AccountRemoveCmd struct {
	Service string `arg:"" help:"Service the account belongs to"`
	Name    string `arg:"" help:"Account name to unregister"`
}

// Run executes the account remove command
func (cmd *AccountRemoveCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	registry := accounts.Open(cfg.ResolvedStateFile())

	if registry.ActiveAccount(cmd.Service) == cmd.Name && !globals.Force {
		return output.NewCLIError(output.ExitConflict,
			fmt.Sprintf("%q is the active account for %q", cmd.Name, cmd.Service)).
			WithHint("Use --force to remove it; the service falls back to the default account")
	}

	removed, err := registry.Unregister(cmd.Service, cmd.Name)
	if err != nil {
		return mapError(err)
	}
	if !removed {
		return output.NewCLIError(output.ExitNotFound,
			fmt.Sprintf("Service %q has no account %q", cmd.Service, cmd.Name))
	}

	fmt.Fprintf(os.Stderr, "Unregistered account %q for service %q\n", cmd.Name, cmd.Service)
	fmt.Fprintf(os.Stderr, "Stored credentials are kept; remove them with 'credstore secret rm'\n")
	return nil
}

// AccountUseCmd implements the account use command
type AccountUseCmd struct {
	Service string `arg:"" help:"Service the account belongs to"`
	Name    string `arg:"" help:"Account name to activate"`
}

// Run executes the account use command
func (cmd *AccountUseCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	registry := accounts.Open(cfg.ResolvedStateFile())
	if err := registry.SetActiveAccount(cmd.Service, cmd.Name); err != nil {
		return mapError(err)
	}

	fmt.Fprintf(os.Stderr, "Active account for %q is now %q\n", cmd.Service, cmd.Name)
	return nil
}

// AccountShowCmd implements the account show command
type AccountShowCmd struct {
	Service string `arg:"" help:"Service to inspect"`
}

// Run executes the account show command
func (cmd *AccountShowCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	registry := accounts.Open(cfg.ResolvedStateFile())

	type activeInfo struct {
		Service string `json:"service"`
		Account string `json:"account"`
	}
	return fp.Formatter.Print(activeInfo{
		Service: cmd.Service,
		Account: registry.ActiveAccount(cmd.Service),
	})
}
