package dom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()

	_, ok, err := s.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("k", "v"))
	v, ok, err := s.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, map[string]string{"k": "v"}, s.Items())

	require.NoError(t, s.RemoveItem("k"))
	require.NoError(t, s.RemoveItem("k"))
	assert.Empty(t, s.Items())
}

func TestMemoryStorage_Fail(t *testing.T) {
	s := NewMemoryStorage()
	quota := errors.New("quota exceeded")

	s.Fail(quota)
	assert.ErrorIs(t, s.SetItem("k", "v"), quota)
	assert.ErrorIs(t, s.RemoveItem("k"), quota)
	_, _, err := s.GetItem("k")
	assert.ErrorIs(t, err, quota)

	s.Fail(nil)
	assert.NoError(t, s.SetItem("k", "v"))
}
