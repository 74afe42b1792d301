package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFileStorage(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "rofr.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store, dbPath
}

func saveEntries(t *testing.T, db *SQLiteStorage, users ...string) {
	t.Helper()
	ctx := context.Background()

	mem, err := db.LoadStore(ctx)
	require.NoError(t, err)
	since := mem.Revision()
	for _, u := range users {
		mem.Upsert(testEntry(u, "SSR", month(2024, time.August), 0))
	}
	_, err = db.SaveIngest(ctx, mem, since, testRun(), nil)
	require.NoError(t, err)
}

func TestNewSnapshotManager_RejectsMemory(t *testing.T) {
	_, err := NewSnapshotManager(createTestStorage(t))
	assert.Error(t, err)

	_, err = NewSnapshotManager(nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestSnapshot_CreateListGetDelete(t *testing.T) {
	ctx := context.Background()
	db, _ := createFileStorage(t)
	saveEntries(t, db, "alice", "bob")

	mgr, err := NewSnapshotManager(db)
	require.NoError(t, err)

	snap, err := mgr.Create(ctx, "before-cleanup", "manual copy", false)
	require.NoError(t, err)
	assert.Equal(t, "before-cleanup", snap.ID)
	assert.Equal(t, 2, snap.Contracts)
	assert.Equal(t, ExpectedSchemaVersion, snap.SchemaVersion)
	assert.Positive(t, snap.FileSize)

	_, err = mgr.Create(ctx, "before-cleanup", "", false)
	assert.ErrorIs(t, err, ErrSnapshotExists)

	generated, err := mgr.Create(ctx, "", "", false)
	require.NoError(t, err)
	assert.Contains(t, generated.ID, "snapshot-")

	snaps, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	got, err := mgr.Get("before-cleanup")
	require.NoError(t, err)
	assert.Equal(t, "manual copy", got.Description)

	require.NoError(t, mgr.Delete("before-cleanup"))
	_, err = mgr.Get("before-cleanup")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, statErr := os.Stat(filepath.Join(mgr.Dir(), "before-cleanup.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSnapshot_InvalidIDs(t *testing.T) {
	db, _ := createFileStorage(t)
	mgr, err := NewSnapshotManager(db)
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", "it's", "x;DROP"} {
		t.Run(id, func(t *testing.T) {
			_, err := mgr.Create(context.Background(), id, "", false)
			assert.ErrorIs(t, err, ErrInvalidSnapshotID)
		})
	}
}

func TestSnapshot_Restore(t *testing.T) {
	ctx := context.Background()
	db, dbPath := createFileStorage(t)
	saveEntries(t, db, "alice")

	mgr, err := NewSnapshotManager(db)
	require.NoError(t, err)
	_, err = mgr.Create(ctx, "one-contract", "", false)
	require.NoError(t, err)

	saveEntries(t, db, "bob", "carol")
	n, err := db.CountContracts(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, mgr.Restore("one-contract"))

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	n, err = reopened.CountContracts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	store, err := reopened.LoadStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	_, backupErr := os.Stat(dbPath + ".restore-backup")
	assert.True(t, os.IsNotExist(backupErr))
}

func TestSnapshot_AutoSnapshotPrunes(t *testing.T) {
	ctx := context.Background()
	db, _ := createFileStorage(t)
	mgr, err := NewSnapshotManager(db)
	require.NoError(t, err)

	_, err = mgr.Create(ctx, "keep-me", "", false)
	require.NoError(t, err)

	for range MaxAutoSnapshots + 2 {
		_, err := mgr.AutoSnapshot(ctx, "ingest")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	snaps, err := mgr.List()
	require.NoError(t, err)

	autos := 0
	manual := false
	for _, s := range snaps {
		if s.IsAuto {
			autos++
		}
		if s.ID == "keep-me" {
			manual = true
		}
	}
	assert.Equal(t, MaxAutoSnapshots, autos)
	assert.True(t, manual, "manual snapshots are never pruned")
}
