package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"dotted local part folds", "Scott.Schatz@domain.com", "scottschatz@domain.com"},
		{"already normalized", "sschatz@domain.com", "sschatz@domain.com"},
		{"mixed case", "Bob.Jones@Contoso.com", "bobjones@contoso.com"},
		{"whitespace trimmed", "  alice@domain.com  ", "alice@domain.com"},
		{"empty string", "", ""},
		{"no at sign returned unchanged except case", "NotAnEmail", "notanemail"},
		{"multiple dots", "a.b.c@domain.com", "abc@domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Normalize(tt.input))
		})
	}
}

func TestNormalize_DomainDotsPreserved(t *testing.T) {
	// Only the local part folds dots away; the domain keeps its own.
	assert.Equal(t, "bob@my.contoso.com", Normalize("bob@my.contoso.com"))
}
