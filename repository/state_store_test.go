package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidkeeper/models"
	"bidkeeper/repository/testutil"
)

func testSnapshot() *models.LedgerSnapshot {
	done := testutil.CreateTestBidEntry(2, 200)
	done.Done = true

	return &models.LedgerSnapshot{
		EntriesByItem: map[string][]models.BidEntry{
			"Netherforce": {testutil.CreateTestBidEntry(1, 100), done},
			"Stormcaller": {},
		},
		FirstBidOrder: []string{"Netherforce"},
		Paused:        true,
		ActiveMessage: models.MessageRef{ChannelID: "c1", MessageID: "m1"},
	}
}

func TestFileStateStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStateStore(path)

	saved := testSnapshot()
	require.NoError(t, store.Save(saved))

	loaded, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, saved.FirstBidOrder, loaded.FirstBidOrder)
	assert.Equal(t, saved.Paused, loaded.Paused)
	assert.Equal(t, saved.ActiveMessage, loaded.ActiveMessage)
	assert.Equal(t, saved.EntriesByItem["Netherforce"], loaded.EntriesByItem["Netherforce"])
}

func TestFileStateStoreMissingFile(t *testing.T) {
	store := NewFileStateStore(filepath.Join(t.TempDir(), "nope.json"))

	state, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, state)
}

func TestFileStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	state, ok, err := NewFileStateStore(path).Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, state)
}

func TestFileStateStoreUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "state": {}}`), 0o644))

	_, ok, err := NewFileStateStore(path).Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStateStoreReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := NewFileStateStore(path)

	require.NoError(t, store.Save(testSnapshot()))

	second := testSnapshot()
	second.Paused = false
	second.EntriesByItem["Netherforce"] = nil
	require.NoError(t, store.Save(second))

	loaded, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, loaded.Paused)
	assert.Empty(t, loaded.EntriesByItem["Netherforce"])

	// No temp files left behind after the rename
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNoopStateStore(t *testing.T) {
	store := NewNoopStateStore()

	require.NoError(t, store.Save(testSnapshot()))
	state, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, state)
}
