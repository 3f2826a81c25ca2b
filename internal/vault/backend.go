// Package vault stores credentials across a prioritized chain of backends:
// the OS keyring, passphrase-encrypted files, and (for backward
// compatibility) plaintext files. The Manager walks the chain so callers
// never care which backend actually holds a value.
package vault

// Backend names, used in config, diagnostics, and user-facing messages.
const (
	KeyringName       = "keyring"
	EncryptedFileName = "encrypted-file"
	PlainFileName     = "plain-file"
	MemoryName        = "memory"
)

// Backend is a single credential store. Implementations map the
// (service, account, key) tuple to a namespace string and store the value
// under it.
type Backend interface {
	// Name identifies the backend in messages and reports.
	Name() string

	Store(service, account, key, value string) error
	Retrieve(service, account, key string) (string, error)
	Delete(service, account, key string) error
	Exists(service, account, key string) bool

	// ListAccounts returns the accounts holding key for service, sorted.
	// Best effort: backends that cannot enumerate their contents return
	// nil, and the account registry fills the gap.
	ListAccounts(service, key string) ([]string, error)
}

// Prober is implemented by backends that can report their health without
// touching credentials. The doctor command uses it.
type Prober interface {
	// Probe returns nil when the backend is ready to serve requests.
	Probe() error
}

// nsBackend exposes raw namespace operations. Every backend in this
// package implements it; the manager uses it for legacy (two-segment)
// namespaces that the public interface cannot express.
type nsBackend interface {
	storeNS(ns, value string) error
	retrieveNS(ns string) (string, error)
	deleteNS(ns string) error
	existsNS(ns string) bool
}

// nsScanner is implemented by backends that can enumerate every namespace
// they hold. Migration uses it to find legacy credentials.
type nsScanner interface {
	scanNamespaces() ([]string, error)
}
