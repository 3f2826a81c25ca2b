package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/cenkalti/backoff/v4"
)

// nativeBackends are the OS secret stores the keyring backend is allowed
// to use. 99designs/keyring could also fall back to its own encrypted
// file store, but that would shadow our encrypted-file backend and make
// "which backend holds this" ambiguous, so it is excluded.
var nativeBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.SecretServiceBackend,
	keyring.WinCredBackend,
	keyring.KWalletBackend,
}

// KeyringBackend stores credentials in the OS-native secret store. When no
// store is reachable (headless session, missing daemon) the backend stays
// in the chain and every operation reports ErrUnavailable so the manager
// moves on to the next backend.
type KeyringBackend struct {
	ring    keyring.Keyring
	openErr error
}

// NewKeyringBackend opens the OS keyring under the given service prefix.
// It never fails: an unreachable keyring is recorded and surfaced as
// ErrUnavailable from each operation instead.
func NewKeyringBackend(servicePrefix string) *KeyringBackend {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              servicePrefix,
		AllowedBackends:          nativeBackends,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return &KeyringBackend{openErr: err}
	}
	return &KeyringBackend{ring: ring}
}

// NewKeyringBackendWithRing wraps an existing keyring, used in tests with
// keyring.NewArrayKeyring.
func NewKeyringBackendWithRing(ring keyring.Keyring) *KeyringBackend {
	return &KeyringBackend{ring: ring}
}

// Name returns the backend identifier.
func (b *KeyringBackend) Name() string {
	return KeyringName
}

// Store saves a credential in the OS keyring.
func (b *KeyringBackend) Store(service, account, key, value string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.storeNS(ns, value)
}

// Retrieve reads a credential from the OS keyring.
func (b *KeyringBackend) Retrieve(service, account, key string) (string, error) {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return "", err
	}
	return b.retrieveNS(ns)
}

// Delete removes a credential from the OS keyring.
func (b *KeyringBackend) Delete(service, account, key string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.deleteNS(ns)
}

// Exists checks whether a credential is present without returning it.
func (b *KeyringBackend) Exists(service, account, key string) bool {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return false
	}
	return b.existsNS(ns)
}

// ListAccounts always returns nil. OS secret stores have no reliable
// prefix enumeration, so the account registry is the source of truth for
// which accounts exist. This is the backend's documented contract, not a
// gap to fill in later.
func (b *KeyringBackend) ListAccounts(service, key string) ([]string, error) {
	return nil, nil
}

// Probe reports whether the OS keyring is reachable.
func (b *KeyringBackend) Probe() error {
	if b.openErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
	}
	if _, err := b.ring.Keys(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *KeyringBackend) storeNS(ns, value string) error {
	if b.openErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
	}
	err := withRetry(func() error {
		return b.ring.Set(keyring.Item{
			Key:  ns,
			Data: []byte(value),
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *KeyringBackend) retrieveNS(ns string) (string, error) {
	if b.openErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
	}
	var item keyring.Item
	err := withRetry(func() error {
		var getErr error
		item, getErr = b.ring.Get(ns)
		return getErr
	})
	if err == keyring.ErrKeyNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(item.Data), nil
}

func (b *KeyringBackend) deleteNS(ns string) error {
	if b.openErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
	}
	// Check presence first: some keyring implementations report success
	// when removing a key that was never there.
	if _, err := b.ring.Get(ns); err != nil {
		if err == keyring.ErrKeyNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	err := withRetry(func() error {
		return b.ring.Remove(ns)
	})
	if err == keyring.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *KeyringBackend) existsNS(ns string) bool {
	_, err := b.retrieveNS(ns)
	return err == nil
}

// scanNamespaces lists every key this tool has stored in the keyring. Used
// only by migration scans; listing can fail on some platforms and callers
// treat that as "nothing to scan".
func (b *KeyringBackend) scanNamespaces() ([]string, error) {
	if b.openErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
	}
	keys, err := b.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var namespaces []string
	for _, k := range keys {
		if _, ok := splitNamespace(k); ok {
			namespaces = append(namespaces, k)
		}
	}
	return namespaces, nil
}

// withRetry runs op, retrying briefly when the failure looks transient
// (busy daemon, dropped D-Bus connection). Anything else, including
// not-found, fails immediately.
func withRetry(op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(policy, 3))
}

// isTransient matches error text for failures that tend to clear on their
// own. Keyring libraries return plain errors, so string matching is the
// only classification available.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"timed out",
		"did not receive a reply",
		"connection reset",
		"connection closed",
		"broken pipe",
		"temporarily",
		"busy",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
