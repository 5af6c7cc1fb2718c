package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		id, err := Generate("toast")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateFormat(t *testing.T) {
	id := MustGenerate("toast")
	assert.True(t, strings.HasPrefix(id, "toast-"))
	assert.Len(t, id, len("toast-")+21)
}
