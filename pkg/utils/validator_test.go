package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateXMLFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "invoice.xml", false},
		{"upper case extension", "INVOICE.XML", false},
		{"empty", "  ", true},
		{"pdf", "invoice.pdf", true},
		{"no extension", "invoice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateXMLFileName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"facture 2025-08.xml", "facture_2025-08.xml"},
		{"../../etc/passwd", "passwd"},
		{`C:\factures\août.xml`, "ao_t.xml"},
		{"..", "document.xml"},
		{"a\x00b.xml", "ab.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}
