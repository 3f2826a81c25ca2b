package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/output"
)

// SecretSetCmd implements the secret set command
type SecretSetCmd struct {
	Service string `arg:"" help:"Service the credential belongs to"`
	Key     string `arg:"" help:"Credential key (e.g. password, api_token)"`
	Account string `help:"Account to store under (default: the service's active account)" short:"a"`
	Value   string `help:"Credential value (prefer stdin or the prompt; flags are visible to other processes)"`
}

// Run executes the secret set command
func (cmd *SecretSetCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	mgr, _, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	value, err := readValue(cmd.Value, globals)
	if err != nil {
		return err
	}

	account := resolveAccount(mgr, cmd.Service, cmd.Account)
	backend, err := mgr.SetAccount(cmd.Service, account, cmd.Key, value)
	if err != nil {
		return mapError(err)
	}

	fmt.Fprintf(os.Stderr, "Stored %s/%s for account %q in %s\n", cmd.Service, cmd.Key, account, backend)
	return nil
}

// SecretGetCmd implements the secret get command
type SecretGetCmd struct {
	Service string `arg:"" help:"Service the credential belongs to"`
	Key     string `arg:"" help:"Credential key"`
	Account string `help:"Account to read from (default: the service's active account)" short:"a"`
}

// Run executes the secret get command
func (cmd *SecretGetCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	mgr, _, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	account := resolveAccount(mgr, cmd.Service, cmd.Account)
	value, err := mgr.GetAccount(cmd.Service, account, cmd.Key)
	if err != nil {
		return mapError(err)
	}

	// Raw value on stdout so the command composes in pipelines; json mode
	// gets the full object.
	if globals.ResolvedOutput() == "json" {
		type secretInfo struct {
			Service string `json:"service"`
			Account string `json:"account"`
			Key     string `json:"key"`
			Value   string `json:"value"`
		}
		return fp.Formatter.Print(secretInfo{
			Service: cmd.Service,
			Account: account,
			Key:     cmd.Key,
			Value:   value,
		})
	}
	fmt.Println(value)
	return nil
}

// SecretRmCmd implements the secret rm command
type SecretRmCmd struct {
	Service string `arg:"" help:"Service the credential belongs to"`
	Key     string `arg:"" help:"Credential key"`
	Account string `help:"Account to delete from (default: the service's active account)" short:"a"`
}

// Run executes the secret rm command
func (cmd *SecretRmCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	mgr, _, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	account := resolveAccount(mgr, cmd.Service, cmd.Account)
	backend, err := mgr.DeleteAccount(cmd.Service, account, cmd.Key)
	if err != nil {
		return mapError(err)
	}

	fmt.Fprintf(os.Stderr, "Removed %s/%s for account %q from %s\n", cmd.Service, cmd.Key, account, backend)
	return nil
}

// SecretAccountsCmd implements the secret accounts command
type SecretAccountsCmd struct {
	Service string `arg:"" help:"Service the credential belongs to"`
	Key     string `arg:"" help:"Credential key"`
}

// Run executes the secret accounts command
func (cmd *SecretAccountsCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	mgr, _, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	names := mgr.Accounts(cmd.Service, cmd.Key)
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "No accounts hold %s/%s\n", cmd.Service, cmd.Key)
		return nil
	}

	active := mgr.Registry().ActiveAccount(cmd.Service)
	var rows []accountRow
	for _, name := range names {
		row := accountRow{Service: cmd.Service, Account: name}
		if name == active {
			row.Active = "*"
		}
		rows = append(rows, row)
	}

	return fp.Formatter.PrintList(rows, []output.Column{
		{Name: "Account", Key: "Account"},
		{Name: "Active", Key: "Active"},
	})
}

// readValue resolves the credential value: --value flag, piped stdin, or an
// interactive hidden prompt, in that order.
func readValue(flagValue string, globals *Globals) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", output.NewCLIError(output.ExitGeneral,
				fmt.Sprintf("Failed to read value from stdin: %v", err))
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	if globals.NoInput {
		return "", output.NewCLIError(output.ExitUsage, "No credential value given").
			WithHint("Pass --value or pipe the value on stdin when prompts are disabled")
	}

	fmt.Fprint(os.Stderr, "Value: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", output.NewCLIError(output.ExitGeneral,
			fmt.Sprintf("Failed to read value: %v", err))
	}
	return string(pw), nil
}
