package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyProvider_StoreAndGet(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	assert.False(t, p.KeyExists())

	key := make([]byte, keyLen)
	for i := range key {
		key[i] = byte(i)
	}
	require.NoError(t, p.StoreKey(key))
	assert.True(t, p.KeyExists())

	got, err := p.GetKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestFileKeyProvider_RejectsWrongSize(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	assert.Error(t, p.StoreKey([]byte("too short")))
}

func TestFileKeyProvider_GetMissingKey(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	_, err := p.GetKey()
	assert.Error(t, err)
}

func TestEnsureKey(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())

	first, err := EnsureKey(p)
	require.NoError(t, err)
	require.Len(t, first, keyLen)

	// Second call returns the same key, not a fresh one.
	second, err := EnsureKey(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
