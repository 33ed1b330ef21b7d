package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriState(t *testing.T) {
	t.Run("undefined falls back to default", func(t *testing.T) {
		assert.False(t, Undefined.IsDefined())
		assert.True(t, Undefined.Bool(true))
		assert.False(t, Undefined.Bool(false))
	})

	t.Run("defined values ignore default", func(t *testing.T) {
		assert.True(t, TriStateOf(true).Bool(false))
		assert.False(t, TriStateOf(false).Bool(true))
		assert.Equal(t, "true", True.String())
		assert.Equal(t, "false", False.String())
	})
}

func TestChangeOr(t *testing.T) {
	assert.Equal(t, Changed, Unchanged.Or(Changed))
	assert.Equal(t, Unchanged, Unchanged.Or(Unchanged))
	assert.True(t, Changed.Or(Unchanged).IsChanged())
}
