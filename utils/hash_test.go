package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeText("  hello   world  "))
	assert.Equal(t, "a b c", NormalizeText("a\nb\t\tc\n"))
	assert.Equal(t, "", NormalizeText("   \n\t "))
	assert.Equal(t, "unchanged", NormalizeText("unchanged"))
}

func TestContentHash(t *testing.T) {
	// SHA-256 of the empty string, a fixed vector.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(""))

	assert.Equal(t, ContentHash("resume text"), ContentHash("resume text"))
	assert.NotEqual(t, ContentHash("resume text"), ContentHash("resume text."))
	assert.Len(t, ContentHash("anything"), 64)
}

func TestNormalizedContentHashesMatch(t *testing.T) {
	a := ContentHash(NormalizeText("Led a team\nof engineers."))
	b := ContentHash(NormalizeText("  Led   a team of\tengineers.  "))
	assert.Equal(t, a, b)
}
