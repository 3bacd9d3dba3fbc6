package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementalGenerator(t *testing.T) {
	g := NewIncremental(100)
	assert.Equal(t, int64(101), g.NextID())
	assert.Equal(t, int64(102), g.NextID())
}
