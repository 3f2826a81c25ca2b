// Package secure keeps secret material out of plain process memory.
// Passphrases live in memguard enclaves between uses: encrypted at rest in
// memory, decrypted only for the duration of a callback, and wiped after.
package secure

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// ErrDestroyed indicates use of a passphrase after Destroy
var ErrDestroyed = errors.New("passphrase has been destroyed")

// Passphrase is a sealed passphrase. The zero value is not usable; create
// one with NewPassphrase.
type Passphrase struct {
	enclave *memguard.Enclave
}

// NewPassphrase seals b into an enclave. The input slice is wiped by the
// enclave constructor, so callers must not reuse it.
func NewPassphrase(b []byte) *Passphrase {
	return &Passphrase{enclave: memguard.NewEnclave(b)}
}

// Reveal opens the enclave and hands the plaintext passphrase to fn. The
// buffer is destroyed when fn returns; fn must not retain the slice.
func (p *Passphrase) Reveal(fn func(passphrase []byte) error) error {
	if p == nil || p.enclave == nil {
		return ErrDestroyed
	}
	buf, err := p.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open passphrase enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Destroy drops the enclave reference. Subsequent Reveal calls fail with
// ErrDestroyed.
func (p *Passphrase) Destroy() {
	if p != nil {
		p.enclave = nil
	}
}

// String keeps passphrases out of logs and format verbs.
func (p *Passphrase) String() string {
	return "[REDACTED]"
}

// Purge wipes every enclave and locked buffer in the process. Deferred from
// main so secrets do not outlive the run.
func Purge() {
	memguard.Purge()
}
