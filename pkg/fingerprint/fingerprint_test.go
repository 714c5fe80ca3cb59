package fingerprint_test

import (
	"testing"

	"github.com/cascadehq/cascade/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fingerprint.Hash("hello"), fingerprint.Hash("hello"))
	assert.NotEqual(t, fingerprint.Hash("hello"), fingerprint.Hash("hello "))
	assert.Len(t, fingerprint.Hash(""), 64)
}
