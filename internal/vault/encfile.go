package vault

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"github.com/plurcast/credstore/internal/secure"
)

// encFileExt marks encrypted credential files. One file per credential,
// named after its namespace.
const encFileExt = ".age"

// MinPassphraseLen is the shortest passphrase accepted for encryption.
// Enforced at write time; existing files decrypt with whatever passphrase
// they were sealed with.
const MinPassphraseLen = 8

// defaultWorkFactor is the scrypt cost (log2 N) for new files.
const defaultWorkFactor = 18

// PromptFunc supplies a passphrase interactively. It is called at most
// once per process; the result is sealed and reused.
type PromptFunc func() (string, error)

// EncryptedFileBackend stores each credential as an age-encrypted file
// under a single directory. Files are sealed with a passphrase-derived
// scrypt key; the passphrase itself stays in a memory-protected enclave
// between uses.
type EncryptedFileBackend struct {
	dir    string
	prompt PromptFunc

	mu         sync.Mutex
	pass       *secure.Passphrase
	workFactor int
}

// NewEncryptedFileBackend creates the backend rooted at dir, creating the
// directory owner-only if needed. passphrase may be nil when prompt is
// set; with neither, the backend reports ErrUnavailable and the chain
// moves past it.
func NewEncryptedFileBackend(dir string, passphrase *secure.Passphrase, prompt PromptFunc) (*EncryptedFileBackend, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &EncryptedFileBackend{
		dir:        dir,
		pass:       passphrase,
		prompt:     prompt,
		workFactor: defaultWorkFactor,
	}, nil
}

// Name returns the backend identifier.
func (b *EncryptedFileBackend) Name() string {
	return EncryptedFileName
}

// Store encrypts value and writes it to the credential's file.
func (b *EncryptedFileBackend) Store(service, account, key, value string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.storeNS(ns, value)
}

// Retrieve reads and decrypts a credential.
func (b *EncryptedFileBackend) Retrieve(service, account, key string) (string, error) {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return "", err
	}
	return b.retrieveNS(ns)
}

// Delete removes the credential's file.
func (b *EncryptedFileBackend) Delete(service, account, key string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.deleteNS(ns)
}

// Exists checks for the credential's file without decrypting it, so it
// never triggers a passphrase prompt.
func (b *EncryptedFileBackend) Exists(service, account, key string) bool {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return false
	}
	return b.existsNS(ns)
}

// ListAccounts enumerates accounts from the file names in the directory.
func (b *EncryptedFileBackend) ListAccounts(service, key string) ([]string, error) {
	namespaces, err := listNamespaces(b.dir, encFileExt)
	if err != nil {
		return nil, err
	}
	return accountsFromNamespaces(namespaces, service, key), nil
}

// Probe reports whether the backend could serve a write: the directory
// must be writable and some passphrase source must exist.
func (b *EncryptedFileBackend) Probe() error {
	if err := ensureDir(b.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil && b.prompt == nil {
		return fmt.Errorf("%w: no passphrase source", ErrUnavailable)
	}
	return nil
}

func (b *EncryptedFileBackend) storeNS(ns, value string) error {
	pass, err := b.passphrase()
	if err != nil {
		return err
	}
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return err
	}

	return pass.Reveal(func(pw []byte) error {
		if len(pw) < MinPassphraseLen {
			return ErrWeakPassphrase
		}
		recipient, err := age.NewScryptRecipient(string(pw))
		if err != nil {
			return fmt.Errorf("failed to derive encryption key: %w", err)
		}
		recipient.SetWorkFactor(b.workFactor)

		var buf bytes.Buffer
		w, err := age.Encrypt(&buf, recipient)
		if err != nil {
			return fmt.Errorf("failed to create encryption writer: %w", err)
		}
		if _, err := w.Write([]byte(value)); err != nil {
			return fmt.Errorf("failed to encrypt credential: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to finalize encryption: %w", err)
		}
		return writeOwnerOnly(path, buf.Bytes())
	})
}

func (b *EncryptedFileBackend) retrieveNS(ns string) (string, error) {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return "", err
	}

	// Read the file before resolving a passphrase so an absent credential
	// never prompts.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	pass, err := b.passphrase()
	if err != nil {
		return "", err
	}

	var value string
	err = pass.Reveal(func(pw []byte) error {
		identity, err := age.NewScryptIdentity(string(pw))
		if err != nil {
			return fmt.Errorf("failed to derive decryption key: %w", err)
		}
		r, err := age.Decrypt(bytes.NewReader(data), identity)
		if err != nil {
			// Wrong passphrase and corrupted ciphertext both land here.
			// The file exists, so this must stay distinct from ErrNotFound.
			return fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		plaintext, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		value = string(plaintext)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (b *EncryptedFileBackend) deleteNS(ns string) error {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func (b *EncryptedFileBackend) existsNS(ns string) bool {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return false
	}
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

func (b *EncryptedFileBackend) scanNamespaces() ([]string, error) {
	return listNamespaces(b.dir, encFileExt)
}

func (b *EncryptedFileBackend) path(ns string) string {
	return filepath.Join(b.dir, ns+encFileExt)
}

// passphrase returns the sealed passphrase, prompting once if the backend
// was built without one. No source at all means the backend cannot serve
// and the chain should move on.
func (b *EncryptedFileBackend) passphrase() (*secure.Passphrase, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass != nil {
		return b.pass, nil
	}
	if b.prompt == nil {
		return nil, fmt.Errorf("%w: no passphrase source", ErrUnavailable)
	}
	entered, err := b.prompt()
	if err != nil {
		return nil, fmt.Errorf("%w: passphrase prompt failed: %v", ErrUnavailable, err)
	}
	b.pass = secure.NewPassphrase([]byte(entered))
	return b.pass, nil
}
