package cli

import (
	"fmt"
	"os"

	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/output"
)

// MigrateCmd implements the migrate command
type MigrateCmd struct{}

// Run executes the migrate command
func (cmd *MigrateCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	_, engine, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	report := engine.MigrateAll()
	if len(report.Entries) == 0 {
		fmt.Fprintf(os.Stderr, "No legacy credentials found\n")
		return nil
	}

	type row struct {
		Service string `json:"service"`
		Key     string `json:"key"`
		Outcome string `json:"outcome"`
		Reason  string `json:"reason,omitempty"`
	}
	rows := make([]row, 0, len(report.Entries))
	for _, e := range report.Entries {
		rows = append(rows, row{
			Service: e.Service,
			Key:     e.Key,
			Outcome: e.Outcome.String(),
			Reason:  e.Reason,
		})
	}

	if err := fp.Formatter.PrintList(rows, []output.Column{
		{Name: "Service", Key: "Service"},
		{Name: "Key", Key: "Key"},
		{Name: "Outcome", Key: "Outcome"},
		{Name: "Reason", Key: "Reason"},
	}); err != nil {
		return err
	}

	migrated, already, failed := report.Counts()
	fmt.Fprintf(os.Stderr, "Migrated %d, already migrated %d, failed %d\n", migrated, already, failed)

	if failed > 0 {
		return output.NewCLIError(output.ExitGeneral,
			fmt.Sprintf("%d credentials failed to migrate", failed)).
			WithHint("Legacy values are untouched; fix the backend and rerun 'credstore migrate'")
	}
	return nil
}
