package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plurcast/credstore/internal/config"
	"github.com/plurcast/credstore/internal/output"
	"github.com/plurcast/credstore/internal/vault"
)

// DoctorCmd implements the doctor command
type DoctorCmd struct{}

// checkRow is one line of doctor output
type checkRow struct {
	Check  string `json:"check"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Run executes the doctor command
func (cmd *DoctorCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals) error {
	mgr, _, err := openVault(cfg, globals)
	if err != nil {
		return err
	}

	var rows []checkRow
	healthy := 0
	for _, b := range mgr.Backends() {
		row := checkRow{Check: "backend " + b.Name(), Status: "ok"}
		if p, ok := b.(vault.Prober); ok {
			if err := p.Probe(); err != nil {
				row.Status = "unavailable"
				row.Detail = err.Error()
			}
		}
		if row.Status == "ok" {
			healthy++
		}
		rows = append(rows, row)
	}

	rows = append(rows, registryCheck(mgr))

	pending := mgr.ScanLegacy()
	legacy := checkRow{Check: "legacy credentials", Status: "none"}
	if n := len(pending); n > 0 {
		legacy.Status = "pending"
		legacy.Detail = fmt.Sprintf("%d awaiting migration", n)
	}
	rows = append(rows, legacy)

	if err := fp.Formatter.PrintList(rows, []output.Column{
		{Name: "Check", Key: "Check"},
		{Name: "Status", Key: "Status"},
		{Name: "Detail", Key: "Detail"},
	}); err != nil {
		return err
	}

	if len(pending) > 0 {
		fmt.Fprintf(os.Stderr, "Run 'credstore migrate' to copy legacy credentials forward\n")
	}
	if healthy == 0 {
		return output.NewCLIError(output.ExitNoStore, "No credential backend is available").
			WithHint("Check 'credstore config get backends' against this machine's capabilities")
	}
	return nil
}

// registryCheck inspects the account state file directly. The registry
// itself recovers from corruption silently, so the doctor reads the raw
// file to surface it.
func registryCheck(mgr *vault.Manager) checkRow {
	registry := mgr.Registry()
	row := checkRow{Check: "account registry", Status: "ok"}

	data, err := os.ReadFile(registry.Path())
	if os.IsNotExist(err) {
		row.Status = "empty"
		row.Detail = "state file not created yet"
		return row
	}
	if err != nil {
		row.Status = "error"
		row.Detail = err.Error()
		return row
	}
	if !json.Valid(data) {
		row.Status = "corrupt"
		row.Detail = "state file is not valid JSON and is ignored until the next successful write"
		return row
	}

	services := registry.Services()
	total := 0
	for _, s := range services {
		total += len(registry.Accounts(s))
	}
	row.Detail = fmt.Sprintf("%d services, %d accounts", len(services), total)
	return row
}
