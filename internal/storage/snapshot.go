package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
)

// MaxAutoSnapshots is how many automatic snapshots are kept before the oldest are pruned.
const MaxAutoSnapshots = 5

// Snapshot errors.
var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
)

// Snapshot describes one saved copy of the database.
type Snapshot struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	FileSize      int64     `json:"file_size"`
	Contracts     int       `json:"contracts"`
	Runs          int       `json:"runs"`
	SchemaVersion int       `json:"schema_version"`
	IsAuto        bool      `json:"is_auto"`
}

// SnapshotManager copies the database into a sibling snapshots directory and back.
type SnapshotManager struct {
	storage *SQLiteStorage
	dir     string
}

// NewSnapshotManager creates a manager for a file-backed database.
func NewSnapshotManager(s *SQLiteStorage) (*SnapshotManager, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: storage", ErrNilParameter)
	}
	if s.dbPath == MemoryPath {
		return nil, fmt.Errorf("snapshots need a file-backed database")
	}

	abs, err := filepath.Abs(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dir := filepath.Join(filepath.Dir(abs), "snapshots")
	if strings.ContainsRune(dir, '\'') {
		return nil, fmt.Errorf("snapshots directory %q must not contain a quote", dir)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &SnapshotManager{storage: s, dir: dir}, nil
}

// Dir returns the snapshots directory.
func (m *SnapshotManager) Dir() string {
	return m.dir
}

func validateSnapshotID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}

func (m *SnapshotManager) paths(id string) (dbPath, metaPath string) {
	return filepath.Join(m.dir, id+".db"), filepath.Join(m.dir, id+".meta.json")
}

// Create writes a consistent copy of the database. An empty id gets a timestamped one.
func (m *SnapshotManager) Create(ctx context.Context, id, description string, auto bool) (*Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		id = "snapshot-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}

	dbPath, metaPath := m.paths(id)
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, id)
	}

	snap := Snapshot{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Description: description,
		IsAuto:      auto,
	}

	db := m.storage.db
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&snap.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if snap.SchemaVersion >= 1 {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts").Scan(&snap.Contracts); err != nil {
			return nil, fmt.Errorf("failed to count contracts: %w", err)
		}
	}
	if snap.SchemaVersion >= 2 {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&snap.Runs); err != nil {
			return nil, fmt.Errorf("failed to count runs: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - the path is built from a validated id inside the snapshots directory
	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dbPath)); err != nil {
		return nil, fmt.Errorf("failed to copy database: %w", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	snap.FileSize = info.Size()

	if err := writeJSONFile(metaPath, snap); err != nil {
		_ = os.Remove(dbPath)
		return nil, fmt.Errorf("failed to save snapshot metadata: %w", err)
	}

	common.LogInfo("snapshot created", common.Fields{"id": id, "contracts": snap.Contracts, "auto": auto})

	return &snap, nil
}

// List returns every snapshot, newest first. Unreadable metadata files are skipped.
func (m *SnapshotManager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	snaps := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		snap, err := readSnapshotMeta(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			common.LogDebug("skipping unreadable snapshot metadata", common.Fields{"file": entry.Name(), "error": err.Error()})
			continue
		}
		snaps = append(snaps, *snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Get returns the metadata of one snapshot.
func (m *SnapshotManager) Get(id string) (*Snapshot, error) {
	if err := validateSnapshotID(id); err != nil {
		return nil, err
	}
	_, metaPath := m.paths(id)
	snap, err := readSnapshotMeta(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return snap, err
}

// Delete removes a snapshot and its metadata.
func (m *SnapshotManager) Delete(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	dbPath, metaPath := m.paths(id)
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	if err := os.Remove(metaPath); err != nil {
		return fmt.Errorf("failed to remove snapshot metadata: %w", err)
	}
	return nil
}

// Restore replaces the database file with a snapshot. It closes the storage; callers must reopen it.
func (m *SnapshotManager) Restore(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	dbPath, _ := m.paths(id)
	if err := verifyIntegrity(dbPath); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupted, err)
	}

	if err := m.storage.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	live := m.storage.dbPath
	backup := live + ".restore-backup"
	if err := copyFile(live, backup); err != nil {
		return fmt.Errorf("failed to back up current database: %w", err)
	}
	if err := copyFile(dbPath, live); err != nil {
		if rollbackErr := copyFile(backup, live); rollbackErr != nil {
			common.LogError(rollbackErr, "failed to roll back after snapshot restore failure", nil)
		}
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	// stale WAL pages would be replayed over the restored file
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(live + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", live+suffix, err)
		}
	}
	if err := os.Remove(backup); err != nil {
		common.LogWarn("failed to remove restore backup", common.Fields{"file": backup, "error": err.Error()})
	}

	common.LogInfo("snapshot restored", common.Fields{"id": id})
	return nil
}

// AutoSnapshot snapshots before a mutating command and prunes old automatic snapshots.
func (m *SnapshotManager) AutoSnapshot(ctx context.Context, prefix string) (*Snapshot, error) {
	id := fmt.Sprintf("auto-%s-%s", prefix, time.Now().Format("2006-01-02-150405.000"))
	snap, err := m.Create(ctx, id, "Automatic snapshot before "+prefix, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create automatic snapshot: %w", err)
	}

	if err := m.prune(MaxAutoSnapshots); err != nil {
		common.LogWarn("failed to prune automatic snapshots", common.Fields{"error": err.Error()})
	}
	return snap, nil
}

func (m *SnapshotManager) prune(keep int) error {
	snaps, err := m.List()
	if err != nil {
		return err
	}
	autos := 0
	for _, s := range snaps {
		if !s.IsAuto {
			continue
		}
		autos++
		if autos > keep {
			if err := m.Delete(s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src) // #nosec G304
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmp := dst + ".tmp"
	destination, err := os.Create(tmp) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readSnapshotMeta(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}
