package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

func TestNewMatchesPattern(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := New()
		require.Len(t, id, 21)
		assert.Regexp(t, idPattern, id)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "id %q generated twice", id)
		seen[id] = struct{}{}
	}
}
