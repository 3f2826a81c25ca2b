package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plurcast/credstore/internal/vault"
)

// BackendInfo describes a credential backend that can appear in the chain.
type BackendInfo struct {
	Name        string
	Description string
}

// knownBackends maps backend names to their descriptions.
var knownBackends = map[string]BackendInfo{
	vault.KeyringName: {
		Name:        vault.KeyringName,
		Description: "OS-native secret store (Keychain, Secret Service, Credential Manager)",
	},
	vault.EncryptedFileName: {
		Name:        vault.EncryptedFileName,
		Description: "passphrase-encrypted files under the data directory",
	},
	vault.PlainFileName: {
		Name:        vault.PlainFileName,
		Description: "deprecated plaintext files, kept for old installs",
	},
	vault.MemoryName: {
		Name:        vault.MemoryName,
		Description: "process-local memory, nothing persists",
	},
}

// GetBackend returns the BackendInfo for the given name.
func GetBackend(name string) (BackendInfo, error) {
	b, ok := knownBackends[name]
	if !ok {
		return BackendInfo{}, fmt.Errorf("unknown backend %q (valid backends: %s)",
			name, strings.Join(ValidBackends(), ", "))
	}
	return b, nil
}

// ValidBackends returns all known backend names, sorted.
func ValidBackends() []string {
	names := make([]string, 0, len(knownBackends))
	for name := range knownBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultOrder is the backend chain used when none is configured: most
// secure first, deprecated plaintext last.
func DefaultOrder() []string {
	return []string{vault.KeyringName, vault.EncryptedFileName, vault.PlainFileName}
}

// ValidateOrder checks a configured backend chain: at least one entry,
// every name known, no duplicates.
func ValidateOrder(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("backend chain is empty")
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := GetBackend(name); err != nil {
			return err
		}
		if seen[name] {
			return fmt.Errorf("backend %q appears twice in the chain", name)
		}
		seen[name] = true
	}
	return nil
}
