package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/domain"
)

// newTestEncryptedStore creates an encrypted store in a temp directory.
func newTestEncryptedStore(t *testing.T) *EncryptedStore {
	t.Helper()
	dataDir := t.TempDir()
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	require.NoError(t, err)

	store, err := NewEncryptedStore(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store
}

func TestEncryptedStore_EmptyIsNotFound(t *testing.T) {
	store := newTestEncryptedStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestEncryptedStore_RoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	want := testLedger()
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, want.ChildName, got.ChildName)
	assert.Equal(t, want.TotalLimitSeconds, got.TotalLimitSeconds)
	require.Len(t, got.Apps, len(want.Apps))
	for i, a := range want.Apps {
		assert.Equal(t, a.ID, got.Apps[i].ID, a.ID)
		assert.Equal(t, a.Label, got.Apps[i].Label, a.ID)
		assert.Equal(t, a.UsedSeconds, got.Apps[i].UsedSeconds, a.ID)
		assert.Equal(t, a.LimitSeconds, got.Apps[i].LimitSeconds, a.ID)
		assert.Equal(t, a.Running, got.Apps[i].Running, a.ID)
		assert.Equal(t, a.BaseUsed, got.Apps[i].BaseUsed, a.ID)
	}

	require.NotNil(t, got.Apps[1].StartedAt)
	assert.Equal(t, want.Apps[1].StartedAt.UnixMilli(), got.Apps[1].StartedAt.UnixMilli())

	require.Len(t, got.EventLog, 1)
	assert.Equal(t, want.EventLog[0].ID, got.EventLog[0].ID)
	assert.Equal(t, want.EventLog[0].Kind, got.EventLog[0].Kind)
}

func TestEncryptedStore_SaveReplacesSnapshot(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Save(testLedger()))

	updated := testLedger()
	updated.Apps[0].UsedSeconds = 777
	updated.EventLog = append(updated.EventLog,
		domain.NewEvent(domain.EventStop, "games", time.Now(), false))
	require.NoError(t, store.Save(updated))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(777), got.Apps[0].UsedSeconds)
	assert.Len(t, got.EventLog, 2)
}

func TestEncryptedStore_Clear(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Save(testLedger()))
	require.NoError(t, store.Clear())

	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestEncryptedStore_ReopenWithSameKey(t *testing.T) {
	dataDir := t.TempDir()
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	require.NoError(t, err)

	store, err := NewEncryptedStore(dataDir, key)
	require.NoError(t, err)
	require.NoError(t, store.Save(testLedger()))
	require.NoError(t, store.Close())

	reopened, err := NewEncryptedStore(dataDir, key)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.ChildName)
}
