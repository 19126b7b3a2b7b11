package registration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenContent(t *testing.T) {
	for _, length := range []int{1, 6, 30, 64} {
		content, err := GenerateTokenContent(length)
		require.NoError(t, err)
		assert.Len(t, content, length)

		for _, char := range content {
			assert.True(t, strings.ContainsRune(tokenAlphabet, char),
				"token %q contains char outside alphabet", content)
		}
	}
}

func TestGenerateTokenContent_InvalidLength(t *testing.T) {
	_, err := GenerateTokenContent(0)
	assert.Error(t, err)

	_, err = GenerateTokenContent(-5)
	assert.Error(t, err)
}

func TestGenerateTokenContent_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		content, err := GenerateTokenContent(30)
		require.NoError(t, err)
		assert.False(t, seen[content], "duplicate token generated: %q", content)
		seen[content] = true
	}
}
