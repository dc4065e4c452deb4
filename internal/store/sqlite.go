package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/seedbloom/internal/fsutil"
	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

// Disk is a Store that survives across builds. Publish trees are copied into
// a content-addressed object area and an SQLite index maps cache keys to
// object identities.
type Disk struct {
	root string
	db   *sql.DB
	mu   sync.RWMutex
}

// NewDisk opens (or creates) a disk store rooted at the given directory.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Join(root, "objects"), 0o750); err != nil {
		return nil, fmt.Errorf("ensure store root: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open store index: %w", err)
	}

	d := &Disk{root: root, db: db}
	if err := d.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}
	return d, nil
}

func (d *Disk) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		cache_key TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_identity ON results(identity);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Disk) objectDir(identity string) string {
	return filepath.Join(d.root, "objects", identity)
}

// Get implements Store. A hit whose object directory has been removed out of
// band is treated as a miss.
func (d *Disk) Get(ctx context.Context, key string) (Entry, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	row := d.db.QueryRowContext(ctx,
		"SELECT identity, duration_ms FROM results WHERE cache_key = ?", key)

	var identity string
	var durationMS int64
	if err := row.Scan(&identity, &durationMS); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("query result: %w", err)
	}

	dir := d.objectDir(identity)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return Entry{}, false, nil
	}

	return Entry{
		Identity:   identity,
		PublishDir: dir,
		Duration:   time.Duration(durationMS) * time.Millisecond,
	}, true, nil
}

// Put implements Store: the publish tree is copied into the object area
// (skipped when an object with the same identity already exists) and the
// index row is upserted.
func (d *Disk) Put(ctx context.Context, key string, res processor.Result) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := d.objectDir(res.Identity)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("ensure object dir: %w", err)
		}
		if err := fsutil.CopyTree(res.PublishDir, dir); err != nil {
			return fmt.Errorf("store object %s: %w", res.Identity, err)
		}
	}

	_, err := d.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO results (cache_key, identity, duration_ms, created_at) VALUES (?, ?, ?, ?)",
		key, res.Identity, res.Timing.Duration.Milliseconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("index result: %w", err)
	}
	return nil
}

// Close implements Store.
func (d *Disk) Close() error { return d.db.Close() }
