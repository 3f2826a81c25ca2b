// Package accounts tracks which named accounts exist for each service and
// which one is currently active. The registry is metadata only: credential
// values live in the vault backends, this package just remembers names.
package accounts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownAccount indicates an operation on an account that is not registered
var ErrUnknownAccount = errors.New("account not registered")

// ErrAccountExists indicates an attempt to add an account that is already registered
var ErrAccountExists = errors.New("account already registered")

// ErrActiveAccount indicates an attempt to remove the account that is
// currently active for its service. The registry itself allows the removal
// (resetting the service to Default); callers that want a confirmation
// step check first and return this.
var ErrActiveAccount = errors.New("account is active")

// Registry is the in-memory account registry backed by a JSON state file.
// Every mutation is persisted synchronously before it returns; if the disk
// write fails the in-memory change is rolled back so memory and disk never
// disagree.
type Registry struct {
	mu   sync.RWMutex
	path string
	st   *state
}

// Open loads the registry from path. A missing or corrupt file starts the
// registry empty; it never fails to open.
func Open(path string) *Registry {
	return &Registry{path: path, st: loadState(path)}
}

// Path returns the state file location backing this registry.
func (r *Registry) Path() string {
	return r.path
}

// ActiveAccount returns the active account for service. Services that never
// had an account activated report Default.
func (r *Registry) ActiveAccount(service string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.st.Active[service]; ok {
		return a
	}
	return Default
}

// SetActiveAccount marks account as the active one for service. The account
// must already be registered, except for Default which is always a valid
// target: activating it clears the explicit entry and the service falls
// back to the implicit default.
func (r *Registry) SetActiveAccount(service, account string) error {
	if err := ValidateName(account); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.has(service, account) {
		if account != Default {
			return fmt.Errorf("%w: %q has no account %q", ErrUnknownAccount, service, account)
		}
		return r.mutate(func(s *state) {
			delete(s.Active, service)
		})
	}
	return r.mutate(func(s *state) {
		s.Active[service] = account
	})
}

// Accounts returns the registered accounts for service, sorted.
func (r *Registry) Accounts(service string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.st.Accounts[service]...)
}

// Services returns every service with at least one registered account, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	services := make([]string, 0, len(r.st.Accounts))
	for s := range r.st.Accounts {
		services = append(services, s)
	}
	sort.Strings(services)
	return services
}

// Exists reports whether account is registered for service.
func (r *Registry) Exists(service, account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(service, account)
}

// Register records account under service. Registering an account that is
// already present is a no-op; the vault manager calls this on every
// successful store.
func (r *Registry) Register(service, account string) error {
	if err := ValidateName(account); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.has(service, account) {
		return nil
	}
	return r.mutate(func(s *state) {
		s.Accounts[service] = insertSorted(s.Accounts[service], account)
	})
}

// Add registers account under service and fails with ErrAccountExists if it
// is already present. This is the strict variant used by explicit
// account-creation commands.
func (r *Registry) Add(service, account string) error {
	if err := ValidateName(account); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.has(service, account) {
		return fmt.Errorf("%w: %q already has account %q", ErrAccountExists, service, account)
	}
	return r.mutate(func(s *state) {
		s.Accounts[service] = insertSorted(s.Accounts[service], account)
	})
}

// Unregister removes account from service and reports whether it was
// present. Removing the active account resets the service to Default so the
// active pointer never dangles.
func (r *Registry) Unregister(service, account string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.has(service, account) {
		return false, nil
	}
	err := r.mutate(func(s *state) {
		s.Accounts[service] = removeString(s.Accounts[service], account)
		if len(s.Accounts[service]) == 0 {
			delete(s.Accounts, service)
		}
		if s.Active[service] == account {
			delete(s.Active, service)
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// has must be called with the lock held.
func (r *Registry) has(service, account string) bool {
	for _, a := range r.st.Accounts[service] {
		if a == account {
			return true
		}
	}
	return false
}

// mutate applies fn to a copy of the state, persists it, and installs the
// copy only after the write succeeds. Must be called with the write lock
// held.
func (r *Registry) mutate(fn func(*state)) error {
	next := r.st.clone()
	fn(next)
	if err := saveState(r.path, next); err != nil {
		return err
	}
	r.st = next
	return nil
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
