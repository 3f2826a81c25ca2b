package accounts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple lowercase", input: "work", wantErr: false},
		{name: "default", input: "default", wantErr: false},
		{name: "mixed case", input: "Work", wantErr: false},
		{name: "digits", input: "account2", wantErr: false},
		{name: "underscore and hyphen", input: "my_alt-account", wantErr: false},
		{name: "single char", input: "a", wantErr: false},
		{name: "max length", input: strings.Repeat("a", 64), wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 65), wantErr: true},
		{name: "dot delimiter", input: "prod.backup", wantErr: true},
		{name: "space", input: "my account", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "path traversal", input: "..", wantErr: true},
		{name: "unicode", input: "café", wantErr: true},
		{name: "at sign", input: "user@host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
