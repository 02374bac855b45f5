package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(filepath.Join(t.TempDir(), "wallets.checkpoint.json"), "wallets.txt")
	require.NoError(t, err)
	mgr.SetLogger(logger.NewNopLogger())
	mgr.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	return mgr
}

func TestLoadAbsent(t *testing.T) {
	mgr := newTestManager(t)

	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.Equal(t, 0, cp.NextIndex())
	assert.False(t, mgr.Exists())
}

func TestRecordAndLoad(t *testing.T) {
	mgr := newTestManager(t)

	saved, err := mgr.Record(3, "wallets.txt", 10)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09T14:05:00Z", saved.Timestamp)

	// fresh manager sees what the first one wrote
	other, err := NewManager(mgr.Path(), "")
	require.NoError(t, err)
	other.SetLogger(logger.NewNopLogger())

	loaded, err := other.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.LastProcessedIndex)
	assert.Equal(t, 4, loaded.NextIndex())
	assert.Equal(t, "wallets.txt", loaded.Source)
	assert.Equal(t, 10, loaded.Total)
}

func TestWireFormat(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Record(1, "", 0)
	require.NoError(t, err)

	data, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]interface{}{
		"lastProcessedIndex": float64(1),
		"timestamp":          "2024-03-09T14:05:00Z",
	}, raw)
}

func TestRecordRejectsRegression(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Record(5, "", 0)
	require.NoError(t, err)

	_, err = mgr.Record(5, "", 0)
	assert.NoError(t, err, "same index is allowed")

	_, err = mgr.Record(4, "", 0)
	assert.ErrorIs(t, err, ErrRegression)

	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cp.LastProcessedIndex)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Record(0, "", 0)
	require.NoError(t, err)

	_, err = os.Stat(mgr.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(filepath.Join(dir, "cp.json"), "")
	require.NoError(t, err)
	mgr.SetLogger(logger.NewNopLogger())

	// a directory where the temp file should go makes the create fail
	require.NoError(t, os.Mkdir(mgr.Path()+".tmp", 0755))

	_, err = mgr.Record(0, "", 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypePersistence))
}

func TestLoadCorrupt(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))

	_, err := mgr.Load()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypePersistence))
}

func TestArchive(t *testing.T) {
	mgr := newTestManager(t)

	path, err := mgr.Archive()
	require.NoError(t, err)
	assert.Empty(t, path, "nothing to archive")

	_, err = mgr.Record(4, "", 5)
	require.NoError(t, err)

	path, err = mgr.Archive()
	require.NoError(t, err)
	assert.Equal(t, mgr.Path()+".completed-20240309T140500Z", path)
	assert.FileExists(t, path)
	assert.False(t, mgr.Exists())

	// the job starts over after archiving
	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)

	_, err = mgr.Record(0, "", 5)
	assert.NoError(t, err, "a fresh job may start below the archived index")

	archives, err := mgr.Archives()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, archives)
}

func TestDelete(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Record(2, "", 0)
	require.NoError(t, err)
	require.True(t, mgr.Exists())

	require.NoError(t, mgr.Delete())
	assert.False(t, mgr.Exists())
	assert.NoError(t, mgr.Delete(), "deleting twice is fine")
}

func TestInfo(t *testing.T) {
	mgr := newTestManager(t)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = mgr.Record(4, "wallets.txt", 10)
	require.NoError(t, err)

	info, err = mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, 4, info["last_processed_index"])
	assert.Equal(t, 5, info["next_index"])
	assert.Equal(t, 10, info["total"])
	assert.InDelta(t, 50.0, info["percent"], 0.001)
	assert.Equal(t, time.Duration(0), info["age"])
}

func TestDefaultPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses APPDATA")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("HOME", dir)

	path, err := DefaultPath("/data/lists/wallets.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	assert.Equal(t, "wallets.checkpoint.json", filepath.Base(path))
	assert.Equal(t, "checkpoints", filepath.Base(filepath.Dir(path)))

	path, err = DefaultPath("")
	require.NoError(t, err)
	assert.Equal(t, "addresses.checkpoint.json", filepath.Base(path))
}
