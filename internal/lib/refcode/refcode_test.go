package refcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)

	for range 100 {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		for _, r := range code {
			assert.True(t,
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
				"unexpected rune %q in code %s", r, code)
		}
		seen[code] = true
	}

	// 100 подряд одинаковых кодов означали бы сломанный генератор
	assert.Greater(t, len(seen), 1)
}
