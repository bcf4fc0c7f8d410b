package wallet

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testID(b byte) ledger.ID {
	var id ledger.ID
	id[31] = b
	return id
}

func TestConfirmMonotone(t *testing.T) {
	store := newTestStore(t)
	vID := testID(1)

	seq, err := store.ConfirmedSeq(vID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seq)

	require.NoError(t, store.Confirm(vID, 3))
	seq, err = store.ConfirmedSeq(vID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)

	// re-confirming the same value is a no-op
	require.NoError(t, store.Confirm(vID, 3))

	// moving backwards is rejected
	err = store.Confirm(vID, 2)
	assert.ErrorIs(t, err, ErrStaleConfirmation)
	seq, err = store.ConfirmedSeq(vID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)
}

func TestAll(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Confirm(testID(1), 2))
	require.NoError(t, store.Confirm(testID(2), 5))

	all, err := store.All()
	require.NoError(t, err)
	assert.Equal(t, map[ledger.ID]uint64{testID(1): 2, testID(2): 5}, all)
}

func TestIngestSignalDir(t *testing.T) {
	store := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	writeSignal := func(name string, sig Signal) {
		data, err := json.Marshal(sig)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0600))
	}

	writeSignal("a.json", Signal{ValidatorID: testID(1), ConfirmedTransfers: 2})
	writeSignal("b.json", Signal{ValidatorID: testID(2), ConfirmedTransfers: 1})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0600))

	applied, err := store.IngestSignalDir(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	seq, err := store.ConfirmedSeq(testID(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)

	// applied and malformed signals are removed, unrelated files stay
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ignored.txt", entries[0].Name())

	// a stale signal is dropped without failing the sweep
	writeSignal("stale.json", Signal{ValidatorID: testID(1), ConfirmedTransfers: 1})
	applied, err = store.IngestSignalDir(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	seq, err = store.ConfirmedSeq(testID(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)

	// a missing directory is not an error
	applied, err = store.IngestSignalDir(filepath.Join(dir, "missing"), logger)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}
