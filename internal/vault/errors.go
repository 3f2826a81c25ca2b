package vault

import "errors"

var (
	// ErrNotFound indicates the credential does not exist in any backend
	ErrNotFound = errors.New("credential not found")

	// ErrUnavailable indicates a backend that cannot serve requests right
	// now, for example a keyring daemon that is not running. The manager
	// treats it as "try the next backend".
	ErrUnavailable = errors.New("credential backend unavailable")

	// ErrNoStore indicates that every backend in the chain was unavailable
	ErrNoStore = errors.New("no credential store available")

	// ErrWeakPassphrase indicates a passphrase under the minimum length
	ErrWeakPassphrase = errors.New("passphrase must be at least 8 characters")

	// ErrDecryptFailed indicates stored ciphertext that cannot be decrypted,
	// from either a wrong passphrase or a corrupted file. Deliberately
	// distinct from ErrNotFound: the credential exists, the caller should
	// re-prompt rather than treat it as absent.
	ErrDecryptFailed = errors.New("failed to decrypt credential")

	// ErrSymlink indicates a credential path occupied by a symbolic link.
	// File backends refuse to follow links so a planted one cannot redirect
	// reads or writes elsewhere.
	ErrSymlink = errors.New("credential path is a symlink")
)
