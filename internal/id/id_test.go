package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		s, err := Generate("rel")
		require.NoError(t, err)
		_, dup := seen[s]
		assert.False(t, dup, "duplicate id %s", s)
		seen[s] = struct{}{}
	}
}

func TestGenerate_Format(t *testing.T) {
	s, err := Generate("rel")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(s, "rel-"))
	suffix := strings.TrimPrefix(s, "rel-")
	assert.Len(t, suffix, size)
	for _, r := range suffix {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate("job"), "job-"))
	})
}
