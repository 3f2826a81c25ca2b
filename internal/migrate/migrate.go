// Package migrate copies credentials from the legacy single-account layout
// into the account-scoped one. Migration is copy-only: the legacy value is
// never deleted, so the worst a failed run can do is nothing.
package migrate

import (
	"fmt"
	"sync"

	"github.com/plurcast/credstore/internal/accounts"
	"github.com/plurcast/credstore/internal/vault"
)

// Outcome classifies what happened to one credential during migration.
type Outcome int

const (
	// OutcomeMigrated means the value was copied and verified.
	OutcomeMigrated Outcome = iota
	// OutcomeAlreadyMigrated means the account layout already had a value,
	// which is left untouched.
	OutcomeAlreadyMigrated
	// OutcomeFailed means the copy or its verification failed; the legacy
	// value still holds the credential.
	OutcomeFailed
)

// String returns the outcome label used in reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeMigrated:
		return "migrated"
	case OutcomeAlreadyMigrated:
		return "already-migrated"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Entry is the migration result for one (service, key) pair.
type Entry struct {
	Service string
	Key     string
	Outcome Outcome
	// Reason explains failures; empty otherwise.
	Reason string
}

// Report collects the entries of a full migration run in scan order.
type Report struct {
	Entries []Entry
}

// Counts tallies the report by outcome.
func (r *Report) Counts() (migrated, already, failed int) {
	for _, e := range r.Entries {
		switch e.Outcome {
		case OutcomeMigrated:
			migrated++
		case OutcomeAlreadyMigrated:
			already++
		case OutcomeFailed:
			failed++
		}
	}
	return
}

// Engine performs migrations through a vault manager. It remembers which
// pairs it has already attempted so the automatic pre-access hook runs at
// most once per pair and never recurses: the hook marks a pair busy before
// touching the manager, so the manager calls it makes come straight back.
type Engine struct {
	mgr *vault.Manager

	mu   sync.Mutex
	done map[string]struct{}
}

// New returns an engine bound to mgr. Callers typically install
// (*Engine).AutoMigrate as the manager's pre-access hook.
func New(mgr *vault.Manager) *Engine {
	return &Engine{mgr: mgr, done: make(map[string]struct{})}
}

// AutoMigrate opportunistically migrates one (service, key) pair. It is
// safe to call on every access: after the first attempt it is a no-op for
// the rest of the process. A pair with no legacy value costs one existence
// check.
func (e *Engine) AutoMigrate(service, key string) error {
	if !e.begin(service, key) {
		return nil
	}
	entry := e.migrateOne(service, key)
	if entry != nil && entry.Outcome == OutcomeFailed {
		return fmt.Errorf("failed to migrate %s.%s: %s", service, key, entry.Reason)
	}
	return nil
}

// MigrateAll scans every backend for legacy credentials and migrates each
// one, returning a report ordered by service then key. Pairs previously
// attempted by AutoMigrate are re-checked; re-running migration is always
// safe.
func (e *Engine) MigrateAll() *Report {
	report := &Report{}
	for _, ref := range e.mgr.ScanLegacy() {
		e.begin(ref.Service, ref.Key)
		entry := e.migrateOne(ref.Service, ref.Key)
		if entry == nil {
			// The legacy value disappeared between scan and copy.
			continue
		}
		report.Entries = append(report.Entries, *entry)
	}
	return report
}

// begin marks a pair as attempted and reports whether this caller was
// first. Marking happens before any manager access, which is what keeps
// the hook reentrancy-safe.
func (e *Engine) begin(service, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := service + "\x00" + key
	if _, seen := e.done[k]; seen {
		return false
	}
	e.done[k] = struct{}{}
	return true
}

// migrateOne runs the copy for a single pair. Nil means there was no
// legacy value to migrate. The legacy value is left in place in every
// path.
func (e *Engine) migrateOne(service, key string) *Entry {
	if !e.mgr.LegacyExists(service, key) {
		return nil
	}

	entry := &Entry{Service: service, Key: key}

	if e.mgr.HasAccount(service, accounts.Default, key) {
		entry.Outcome = OutcomeAlreadyMigrated
		return entry
	}

	value, err := e.mgr.LegacyRetrieve(service, key)
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Reason = fmt.Sprintf("failed to read legacy value: %v", err)
		return entry
	}

	if _, err := e.mgr.SetAccount(service, accounts.Default, key, value); err != nil {
		entry.Outcome = OutcomeFailed
		entry.Reason = fmt.Sprintf("failed to store migrated value: %v", err)
		return entry
	}

	// Read back through the chain to prove the copy is actually
	// reachable before reporting success.
	back, err := e.mgr.GetAccount(service, accounts.Default, key)
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Reason = fmt.Sprintf("verification read failed: %v", err)
		return entry
	}
	if back != value {
		entry.Outcome = OutcomeFailed
		entry.Reason = "verification read returned a different value"
		return entry
	}

	entry.Outcome = OutcomeMigrated
	return entry
}
