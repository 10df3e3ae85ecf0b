package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFindsPhoneForms(t *testing.T) {
	e := NewRegexExtractor(300, 3)

	text := strings.Join([]string{
		"Kontaktieren Sie uns",
		"Tel: +49 30 123456-78",
		"Fax: 0049 30 1234567",
		"Zentrale: (030) 98 76 54 32",
		"Kurz: 12345", // too few digits
	}, "\n")

	items := e.Extract(text, "http://example.com/kontakt", "Acme", []string{"DE"})

	require.Len(t, items, 3)
	assert.Equal(t, "+49 30 123456-78", items[0].Number)
	assert.Equal(t, "0049 30 1234567", items[1].Number)
	assert.Equal(t, "http://example.com/kontakt", items[0].SourceURL)
	assert.Equal(t, "Acme", items[0].CompanyName)
	assert.Equal(t, []string{"DE"}, items[0].TargetCountryHints)
	assert.Contains(t, items[0].Snippet, "Tel:")
}

func TestExtractIdenticalCap(t *testing.T) {
	e := NewRegexExtractor(300, 2)

	line := "Hotline +49 30 1234567 anrufen.\n"
	text := strings.Repeat(line, 5)

	items := e.Extract(text, "http://example.com/", "Acme", nil)
	assert.Len(t, items, 2)
}

func TestExtractSnippetWindow(t *testing.T) {
	e := NewRegexExtractor(20, 3)

	pad := strings.Repeat("a", 100)
	text := pad + " +49301234567 " + pad

	items := e.Extract(text, "u", "c", nil)
	require.Len(t, items, 1)
	// 10 runes each side plus the number itself.
	assert.LessOrEqual(t, len([]rune(items[0].Snippet)), 10+13+1+10+2)
	assert.Contains(t, items[0].Snippet, "+49301234567")
}

func TestExtractFromFile(t *testing.T) {
	e := NewRegexExtractor(300, 3)

	path := filepath.Join(t.TempDir(), "page_cleaned.txt")
	require.NoError(t, os.WriteFile(path, []byte("Tel +49 30 1234567"), 0o644))

	items, err := e.ExtractFromFile(path, "http://example.com/", "Acme", nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = e.ExtractFromFile(filepath.Join(t.TempDir(), "missing.txt"), "u", "c", nil)
	assert.Error(t, err)
}

func TestDigitsOf(t *testing.T) {
	assert.Equal(t, "49301234567", digitsOf("+49 (30) 123-45 67"))
}
