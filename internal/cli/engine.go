package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/plurcast/credstore/internal/accounts"
	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/migrate"
	"github.com/plurcast/credstore/internal/output"
	"github.com/plurcast/credstore/internal/secure"
	"github.com/plurcast/credstore/internal/vault"
)

// passphraseEnv seeds the encrypted-file backend non-interactively.
const passphraseEnv = "PLURCAST_PASSPHRASE"

// openVault builds the registry, backend chain, and migration engine from
// config, and installs the pre-access migration hook so credential reads
// transparently pull legacy values forward.
func openVault(cfg *config.Config, globals *Globals) (*vault.Manager, *migrate.Engine, error) {
	order := cfg.ResolvedBackends()
	if err := config.ValidateOrder(order); err != nil {
		return nil, nil, output.NewCLIError(output.ExitConfigError,
			fmt.Sprintf("Invalid backend configuration: %v", err)).
			WithHint("Valid backends: " + strings.Join(config.ValidBackends(), ", "))
	}

	backends, err := vault.NewChain(vault.ChainConfig{
		Order:         order,
		ServicePrefix: cfg.ResolvedServicePrefix(),
		EncryptedDir:  cfg.ResolvedEncryptedDir(),
		PlainDir:      cfg.ResolvedPlainDir(),
		Passphrase:    envPassphrase(),
		Prompt:        passphrasePrompt(globals),
	})
	if err != nil {
		return nil, nil, output.NewCLIError(output.ExitGeneral,
			fmt.Sprintf("Failed to initialize credential storage: %v", err))
	}

	mgr := vault.NewManager(backends, accounts.Open(cfg.ResolvedStateFile()))
	engine := migrate.New(mgr)
	mgr.SetAutoMigrate(engine.AutoMigrate)

	return mgr, engine, nil
}

// envPassphrase reads the passphrase from the environment. Returns nil when
// unset so the backend prompts lazily instead.
func envPassphrase() *secure.Passphrase {
	if v, ok := os.LookupEnv(passphraseEnv); ok && v != "" {
		return secure.NewPassphrase([]byte(v))
	}
	return nil
}

// passphrasePrompt returns the interactive passphrase callback, or nil when
// prompting is impossible (--no-input, or stdin is not a terminal). A nil
// prompt makes the encrypted backend report unavailable rather than hang.
func passphrasePrompt(globals *Globals) vault.PromptFunc {
	if globals.NoInput || !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func() (string, error) {
		fmt.Fprint(os.Stderr, "Vault passphrase: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
}

// resolveAccount picks the account a secret command operates on: the
// --account flag if given, otherwise the service's active account.
func resolveAccount(mgr *vault.Manager, service, flag string) string {
	if flag != "" {
		return flag
	}
	return mgr.Registry().ActiveAccount(service)
}

// mapError converts engine sentinel errors into CLIErrors with the right
// exit codes. Errors that are already CLIErrors pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, vault.ErrNotFound):
		return output.NewCLIError(output.ExitNotFound, "Credential not found")
	case errors.Is(err, vault.ErrNoStore):
		return output.NewCLIError(output.ExitNoStore,
			fmt.Sprintf("No credential backend could serve the request: %v", err)).
			WithHint("Run 'credstore doctor' to check backend health")
	case errors.Is(err, vault.ErrWeakPassphrase):
		return output.NewCLIError(output.ExitGeneral,
			fmt.Sprintf("Passphrase must be at least %d characters", vault.MinPassphraseLen))
	case errors.Is(err, vault.ErrDecryptFailed):
		return output.NewCLIError(output.ExitGeneral,
			"Failed to decrypt credential (wrong passphrase or corrupted file)")
	case errors.Is(err, vault.ErrSymlink):
		return output.NewCLIError(output.ExitGeneral,
			fmt.Sprintf("Refusing to touch symlinked credential file: %v", err))
	case errors.Is(err, accounts.ErrInvalidName):
		return output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("%v", err)).
			WithHint("Account names are 1-64 characters from [A-Za-z0-9_-]")
	case errors.Is(err, vault.ErrInvalidSegment):
		return output.NewCLIError(output.ExitUsage,
			fmt.Sprintf("%v", err)).
			WithHint("Service and key names are 1-64 characters from [A-Za-z0-9_-]")
	case errors.Is(err, accounts.ErrUnknownAccount):
		return output.NewCLIError(output.ExitNotFound, fmt.Sprintf("%v", err))
	case errors.Is(err, accounts.ErrAccountExists):
		return output.NewCLIError(output.ExitConflict, fmt.Sprintf("%v", err))
	}
	return output.NewCLIError(output.ExitGeneral, err.Error())
}
