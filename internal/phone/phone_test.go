package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNational(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"+8801712345678", "01712345678"},
		{"8801712345678", "01712345678"},
		{"01712345678", "01712345678"},
		{"017-1234 5678", "01712345678"},
		{" +88 017-12345678 ", "01712345678"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, National(tt.raw))
		})
	}
}

func TestInternational(t *testing.T) {
	assert.Equal(t, "+8801712345678", International("01712345678"))
	assert.Equal(t, "+8801712345678", International("8801712345678"))
	assert.Equal(t, "+8801712345678", International("+88 01712-345678"))
	assert.Equal(t, "", International("  "))
}

func TestValid(t *testing.T) {
	valid := []string{
		"01312345678",
		"01912345678",
		"+8801712345678",
		"8801812345678",
	}
	invalid := []string{
		"",
		"01212345678",    // third digit out of range
		"0171234567",     // too short
		"017123456789",   // too long
		"+8701712345678", // wrong country code
		"0171234567a",
		"017 12345678", // separators are not accepted here
		"11712345678",
	}

	for _, p := range valid {
		assert.True(t, Valid(p), p)
	}
	for _, p := range invalid {
		assert.False(t, Valid(p), p)
	}
}

func TestSame(t *testing.T) {
	assert.True(t, Same("+8801712345678", "01712345678"))
	assert.True(t, Same("017-12345678", "8801712345678"))
	assert.False(t, Same("01712345678", "01912345678"))
	assert.False(t, Same("", ""))
}
