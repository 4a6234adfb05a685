package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	got, err := Generate("dl")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "dl-"))
	assert.Len(t, strings.TrimPrefix(got, "dl-"), 21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		got, err := Generate("dl")
		require.NoError(t, err)
		assert.False(t, seen[got])
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		got := MustGenerate("job")
		assert.True(t, strings.HasPrefix(got, "job-"))
	})
}
