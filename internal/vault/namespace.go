package vault

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter joins namespace segments. It is excluded from the segment
// character set, which is what makes namespaces collision-free: two
// distinct (service, account, key) tuples can never produce the same
// joined string.
const Delimiter = "."

const maxSegmentLen = 64

// ErrInvalidSegment indicates a namespace segment that fails validation
var ErrInvalidSegment = errors.New("invalid namespace segment")

// Namespace derives the backend storage key for a credential:
// "service.account.key". All three segments must be 1-64 characters from
// [A-Za-z0-9_-].
func Namespace(service, account, key string) (string, error) {
	for _, seg := range []struct{ label, value string }{
		{"service", service},
		{"account", account},
		{"key", key},
	} {
		if err := checkSegment(seg.label, seg.value); err != nil {
			return "", err
		}
	}
	return service + Delimiter + account + Delimiter + key, nil
}

// LegacyNamespace derives the storage key used before accounts existed:
// "service.key". Only the migration engine consults it.
func LegacyNamespace(service, key string) (string, error) {
	if err := checkSegment("service", service); err != nil {
		return "", err
	}
	if err := checkSegment("key", key); err != nil {
		return "", err
	}
	return service + Delimiter + key, nil
}

func checkSegment(label, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidSegment, label)
	}
	if len(value) > maxSegmentLen {
		return fmt.Errorf("%w: %s %q is longer than %d characters", ErrInvalidSegment, label, value, maxSegmentLen)
	}
	for i := 0; i < len(value); i++ {
		if !isSegmentChar(value[i]) {
			return fmt.Errorf("%w: %s %q contains %q", ErrInvalidSegment, label, value, rune(value[i]))
		}
	}
	return nil
}

func isSegmentChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}

// splitNamespace breaks a stored namespace back into its segments. It
// returns the parts and true only when every segment is valid and the
// arity matches either the current (3) or legacy (2) layout.
func splitNamespace(ns string) ([]string, bool) {
	parts := strings.Split(ns, Delimiter)
	if len(parts) != 2 && len(parts) != 3 {
		return nil, false
	}
	for _, p := range parts {
		if checkSegment("segment", p) != nil {
			return nil, false
		}
	}
	return parts, true
}
