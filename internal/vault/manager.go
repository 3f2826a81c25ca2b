package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/plurcast/credstore/internal/accounts"
)

// LegacyRef identifies a credential stored under the pre-account
// two-segment layout.
type LegacyRef struct {
	Service string
	Key     string
}

// Manager walks the backend chain so callers get one coherent store. Writes
// go to the first backend that accepts them, reads to the first backend
// that has the value. Successful stores and deletes keep the account
// registry in sync as a side effect.
type Manager struct {
	backends    []Backend
	registry    *accounts.Registry
	autoMigrate func(service, key string) error
}

// NewManager wires the backend chain to the account registry.
func NewManager(backends []Backend, registry *accounts.Registry) *Manager {
	return &Manager{backends: backends, registry: registry}
}

// SetAutoMigrate installs the hook run before credential access to pull
// legacy values into the account layout. The hook must tolerate reentrant
// manager calls for the same (service, key) pair.
func (m *Manager) SetAutoMigrate(fn func(service, key string) error) {
	m.autoMigrate = fn
}

// Registry exposes the account registry backing this manager.
func (m *Manager) Registry() *accounts.Registry {
	return m.registry
}

// Backends returns the chain in priority order.
func (m *Manager) Backends() []Backend {
	return m.backends
}

// Set stores a credential under the default account.
func (m *Manager) Set(service, key, value string) (string, error) {
	return m.SetAccount(service, accounts.Default, key, value)
}

// Get retrieves a credential from the default account.
func (m *Manager) Get(service, key string) (string, error) {
	return m.GetAccount(service, accounts.Default, key)
}

// Delete removes a credential from the default account.
func (m *Manager) Delete(service, key string) (string, error) {
	return m.DeleteAccount(service, accounts.Default, key)
}

// Has checks a credential under the default account.
func (m *Manager) Has(service, key string) bool {
	return m.HasAccount(service, accounts.Default, key)
}

// SetAccount stores value under (service, account, key), trying each
// backend in priority order until one accepts the write. It returns the
// name of the backend that took it, and registers the account on success.
// Security rejections (weak passphrase, symlinked path) abort the chain
// instead of falling through to a weaker backend.
func (m *Manager) SetAccount(service, account, key, value string) (string, error) {
	if _, err := Namespace(service, account, key); err != nil {
		return "", err
	}

	var failures []error
	for _, b := range m.backends {
		if err := b.Store(service, account, key, value); err != nil {
			if fatal(err) {
				return "", err
			}
			failures = append(failures, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		m.notePlaintext(b, "store", service, key)
		if err := m.registry.Register(service, account); err != nil {
			return b.Name(), fmt.Errorf("credential stored in %s but account registration failed: %w", b.Name(), err)
		}
		return b.Name(), nil
	}
	return "", fmt.Errorf("%w: %v", ErrNoStore, errors.Join(failures...))
}

// GetAccount retrieves the credential for (service, account, key) from the
// first backend that has it. Legacy values are not read here: the
// pre-access migration hook copies them into the account layout, and old
// releases keep reading the untouched legacy namespace directly.
func (m *Manager) GetAccount(service, account, key string) (string, error) {
	if _, err := Namespace(service, account, key); err != nil {
		return "", err
	}
	m.runAutoMigrate(service, key)
	return m.retrieve(service, account, key)
}

// DeleteAccount removes the credential from the first backend that has it
// and unregisters the account. Copies in lower-priority backends are left
// alone, mirroring how reads resolve.
func (m *Manager) DeleteAccount(service, account, key string) (string, error) {
	if _, err := Namespace(service, account, key); err != nil {
		return "", err
	}
	m.runAutoMigrate(service, key)

	var failures []error
	answered := false
	for _, b := range m.backends {
		err := b.Delete(service, account, key)
		if err == nil {
			m.notePlaintext(b, "delete", service, key)
			if _, uerr := m.registry.Unregister(service, account); uerr != nil {
				return b.Name(), fmt.Errorf("credential removed from %s but account deregistration failed: %w", b.Name(), uerr)
			}
			return b.Name(), nil
		}
		if errors.Is(err, ErrNotFound) {
			answered = true
			continue
		}
		if fatal(err) {
			return "", err
		}
		failures = append(failures, fmt.Errorf("%s: %w", b.Name(), err))
	}
	if !answered && len(failures) > 0 {
		return "", fmt.Errorf("%w: %v", ErrNoStore, errors.Join(failures...))
	}
	return "", ErrNotFound
}

// HasAccount reports whether any backend holds the credential.
func (m *Manager) HasAccount(service, account, key string) bool {
	if _, err := Namespace(service, account, key); err != nil {
		return false
	}
	m.runAutoMigrate(service, key)

	for _, b := range m.backends {
		if b.Exists(service, account, key) {
			return true
		}
	}
	return false
}

// Accounts returns every account known to hold key for service: the union
// of backend listings and the registry. Backends that cannot enumerate
// contribute nothing; the registry covers for them.
func (m *Manager) Accounts(service, key string) []string {
	m.runAutoMigrate(service, key)

	set := make(map[string]struct{})
	for _, b := range m.backends {
		names, err := b.ListAccounts(service, key)
		if err != nil {
			slog.Debug("account listing failed", "backend", b.Name(), "error", err)
			continue
		}
		for _, n := range names {
			set[n] = struct{}{}
		}
	}
	for _, n := range m.registry.Accounts(service) {
		set[n] = struct{}{}
	}

	merged := make([]string, 0, len(set))
	for n := range set {
		merged = append(merged, n)
	}
	sort.Strings(merged)
	return merged
}

// LegacyExists reports whether the legacy namespace for (service, key)
// holds a value in any backend.
func (m *Manager) LegacyExists(service, key string) bool {
	ns, err := LegacyNamespace(service, key)
	if err != nil {
		return false
	}
	for _, b := range m.backends {
		nb, ok := b.(nsBackend)
		if !ok {
			continue
		}
		if nb.existsNS(ns) {
			return true
		}
	}
	return false
}

// LegacyRetrieve reads the legacy value for (service, key). Migration uses
// it as its source; it never writes and never deletes.
func (m *Manager) LegacyRetrieve(service, key string) (string, error) {
	ns, err := LegacyNamespace(service, key)
	if err != nil {
		return "", err
	}
	var failures []error
	answered := false
	for _, b := range m.backends {
		nb, ok := b.(nsBackend)
		if !ok {
			continue
		}
		value, err := nb.retrieveNS(ns)
		if err == nil {
			m.notePlaintext(b, "retrieve", service, key)
			return value, nil
		}
		if errors.Is(err, ErrNotFound) {
			answered = true
			continue
		}
		if fatal(err) {
			return "", err
		}
		failures = append(failures, fmt.Errorf("%s: %w", b.Name(), err))
	}
	if !answered && len(failures) > 0 {
		return "", fmt.Errorf("%w: %v", ErrNoStore, errors.Join(failures...))
	}
	return "", ErrNotFound
}

// ScanLegacy lists every (service, key) pair still stored under the legacy
// layout, sorted by service then key. Backends that cannot enumerate are
// skipped; the scan is as complete as the chain allows.
func (m *Manager) ScanLegacy() []LegacyRef {
	seen := make(map[LegacyRef]struct{})
	var refs []LegacyRef
	for _, b := range m.backends {
		sc, ok := b.(nsScanner)
		if !ok {
			continue
		}
		namespaces, err := sc.scanNamespaces()
		if err != nil {
			slog.Debug("namespace scan failed", "backend", b.Name(), "error", err)
			continue
		}
		for _, ns := range namespaces {
			parts, ok := splitNamespace(ns)
			if !ok || len(parts) != 2 {
				continue
			}
			ref := LegacyRef{Service: parts[0], Key: parts[1]}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Service != refs[j].Service {
			return refs[i].Service < refs[j].Service
		}
		return refs[i].Key < refs[j].Key
	})
	return refs
}

func (m *Manager) retrieve(service, account, key string) (string, error) {
	var failures []error
	answered := false
	for _, b := range m.backends {
		value, err := b.Retrieve(service, account, key)
		if err == nil {
			m.notePlaintext(b, "retrieve", service, key)
			return value, nil
		}
		if errors.Is(err, ErrNotFound) {
			answered = true
			continue
		}
		if fatal(err) {
			return "", err
		}
		failures = append(failures, fmt.Errorf("%s: %w", b.Name(), err))
	}
	if !answered && len(failures) > 0 {
		return "", fmt.Errorf("%w: %v", ErrNoStore, errors.Join(failures...))
	}
	return "", ErrNotFound
}

func (m *Manager) runAutoMigrate(service, key string) {
	if m.autoMigrate == nil {
		return
	}
	if err := m.autoMigrate(service, key); err != nil {
		slog.Warn("automatic migration failed", "service", service, "key", key, "error", err)
	}
}

// notePlaintext logs a deprecation warning whenever the plaintext backend
// actually serves an operation. Values never appear in the log.
// CREDSTORE_QUIET suppresses it like every other nag.
func (m *Manager) notePlaintext(b Backend, op, service, key string) {
	if b.Name() != PlainFileName || quietMode() {
		return
	}
	slog.Warn("credential served from deprecated plaintext storage",
		"op", op, "service", service, "key", key)
}

// fatal reports whether a backend error must abort the fallback chain.
// Security failures never advance it: falling through on a weak
// passphrase or a planted symlink would quietly land the credential in a
// weaker store, and an undecryptable value needs the caller's attention,
// not a second opinion.
func fatal(err error) bool {
	return errors.Is(err, ErrWeakPassphrase) ||
		errors.Is(err, ErrSymlink) ||
		errors.Is(err, ErrDecryptFailed)
}
