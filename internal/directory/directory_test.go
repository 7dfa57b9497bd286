package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRememberAndLookup(t *testing.T) {
	c := NewCache()

	c.Remember("p1", "Alice")
	c.Remember("p1", "AliceRenamed")
	c.Remember("", "nobody")
	c.Remember("p2", "")

	name, ok := c.LookupName("p1")
	assert.True(t, ok)
	assert.Equal(t, "AliceRenamed", name)

	_, ok = c.LookupName("p2")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Len())
}
