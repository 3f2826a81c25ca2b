package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "shorter than max", input: "abc", maxLen: 10, expected: "abc"},
		{name: "exactly max", input: "abcde", maxLen: 5, expected: "abcde"},
		{name: "truncated with ellipsis", input: "abcdefghij", maxLen: 8, expected: "abcde..."},
		{name: "tiny max", input: "abcdef", maxLen: 2, expected: "ab"},
		{name: "empty string", input: "", maxLen: 5, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestRenderTable(t *testing.T) {
	columns := []Column{
		{Name: "Service", Key: "Service"},
		{Name: "Account", Key: "Account"},
	}

	t.Run("renders headers and rows", func(t *testing.T) {
		var buf bytes.Buffer
		RenderTable(&buf, columns, []map[string]string{
			{"Service": "nostr", "Account": "default"},
			{"Service": "mastodon", "Account": "work"},
		})

		out := buf.String()
		assert.Contains(t, out, "Service")
		assert.Contains(t, out, "Account")
		assert.Contains(t, out, "nostr")
		assert.Contains(t, out, "mastodon")
	})

	t.Run("no output for zero rows", func(t *testing.T) {
		var buf bytes.Buffer
		RenderTable(&buf, columns, nil)
		assert.Empty(t, buf.String())
	})

	t.Run("respects column width", func(t *testing.T) {
		var buf bytes.Buffer
		RenderTable(&buf, []Column{{Name: "V", Key: "V", Width: 8}}, []map[string]string{
			{"V": "12345678901234567890"},
		})
		assert.Contains(t, buf.String(), "12345...")
		assert.NotContains(t, buf.String(), "1234567890123")
	})
}
