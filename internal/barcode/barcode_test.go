package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Valid EAN-13", "3850012345678", "3850012345678"},
		{"UPC-A to EAN-13", "123456789012", "0123456789012"},
		{"Strip hyphens", "385-001-234-5678", "3850012345678"},
		{"Strip spaces", "385 001 234 5678", "3850012345678"},
		{"All zeros placeholder", "0000000000000", ""},
		{"Variable weight code", "2123456789012", ""},
		{"Invalid check digit", "3850012345679", ""},
		{"Short code (internal)", "12345", "12345"},
		{"Letters", "SKU-12345", ""},
		{"Empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestValidEAN13(t *testing.T) {
	assert.True(t, ValidEAN13("3850012345678"))
	assert.True(t, ValidEAN13("1234567890128"))
	assert.False(t, ValidEAN13("3850012345679"))
	assert.False(t, ValidEAN13("123"))
	assert.False(t, ValidEAN13("12345678901a8"))
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Already canonical", "3850012345678", []string{"3850012345678"}},
		{"Surrounding whitespace", "  3850012345678\n", []string{"3850012345678"}},
		{"UPC-A", "123456789012", []string{"123456789012", "0123456789012"}},
		{"Hyphenated", "385-001-234-5678", []string{"385-001-234-5678", "3850012345678"}},
		{"Internal code", "SKU-12345", []string{"SKU-12345"}},
		{"Variable weight kept verbatim", "2123456789012", []string{"2123456789012"}},
		{"Blank", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Candidates(tt.input))
		})
	}
}
