// Package store implements the embedded gazetteer store: a single
// SQLite file holding the feature table, an FTS5 ranked text index over
// the search text, and a composite bbox index for reverse geocoding.
//
// A store is exclusively owned by the builder during construction and
// read-only afterwards; concurrent readers against a finished build are
// safe because no writers exist once Finalize has run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
	"github.com/overture-tools/gazetteer/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Metadata keys stamped into a finished store.
const (
	MetaKeyRelease     = "overture_release"
	MetaKeyRecordCount = "record_count"
	MetaKeyType        = "type"
)

// storeType is the metadata marker identifying a gazetteer store.
const storeType = "gazetteer"

// Options tunes an open store.
type Options struct {
	// CacheSizeMB is the SQLite page cache size.
	CacheSizeMB int

	// ReverseCacheSize is the LRU entry count for reverse-geocode
	// results. Zero disables the cache.
	ReverseCacheSize int
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{CacheSizeMB: 64, ReverseCacheSize: 1024}
}

// Store is an embedded gazetteer database.
type Store struct {
	db   *sql.DB
	path string

	revCache *lru.Cache[reverseKey, []model.Feature]
}

// FeatureColumns is the column list shared by inserts, scans, and the
// upsert statements the diff engine emits against a remote copy.
const FeatureColumns = "gers_id, version, kind, name, lat, lon, " +
	"bbox_xmin, bbox_ymin, bbox_xmax, bbox_ymax, area, population, country, region, search_text"

// Create creates a new store at path, replacing any previous file.
// An empty path creates an in-memory store for testing.
func Create(path string, opts Options) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, gazerrors.New(gazerrors.ErrCodeOutputPath,
				fmt.Sprintf("cannot create output directory %s", dir), err)
		}
		// A stale store at the destination must never survive into a
		// new build.
		RemoveArtifacts(path)
	}

	s, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, gazerrors.New(gazerrors.ErrCodeStoreOpen, "cannot initialize schema", err)
	}
	return s, nil
}

// Open opens an existing store read-mostly, verifying that it actually
// is a finished gazetteer store before returning it.
func Open(path string, opts Options) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeStoreOpen,
			fmt.Sprintf("store not found at %s", path), err)
	}

	s, err := open(path, opts)
	if err != nil {
		return nil, err
	}

	var n int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='features'`).Scan(&n)
	if err != nil || n == 0 {
		_ = s.Close()
		return nil, gazerrors.New(gazerrors.ErrCodeStoreOpen,
			fmt.Sprintf("%s is not a gazetteer store", path), err)
	}

	return s, nil
}

func open(path string, opts Options) (*Store, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeStoreOpen, "cannot open database", err)
	}

	// Single connection: the builder is the only writer, and one
	// connection sidesteps SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if opts.CacheSizeMB <= 0 {
		opts.CacheSizeMB = DefaultOptions().CacheSizeMB
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", opts.CacheSizeMB*1024),
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, gazerrors.New(gazerrors.ErrCodeStoreOpen, "cannot set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if opts.ReverseCacheSize > 0 {
		cache, err := lru.New[reverseKey, []model.Feature](opts.ReverseCacheSize)
		if err != nil {
			_ = db.Close()
			return nil, gazerrors.Wrap(gazerrors.ErrCodeInternal, err)
		}
		s.revCache = cache
	}
	return s, nil
}

// initSchema creates the feature table, the FTS5 index with its sync
// triggers, and the metadata table. The bbox and area indexes are
// deferred to Finalize so bulk inserts stay fast.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE features (
		rowid INTEGER PRIMARY KEY,
		gers_id TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		bbox_xmin REAL NOT NULL,
		bbox_ymin REAL NOT NULL,
		bbox_xmax REAL NOT NULL,
		bbox_ymax REAL NOT NULL,
		area REAL NOT NULL,
		population INTEGER,
		country TEXT,
		region TEXT,
		search_text TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE features_fts USING fts5(
		search_text,
		content=features,
		content_rowid=rowid,
		tokenize='porter unicode61 remove_diacritics 1'
	);

	-- Triggers keep the FTS index in step with every insert, so the
	-- text index is maintained incrementally rather than in a final
	-- batch pass. Note: an INSERT OR REPLACE conflict deletes the old
	-- row, and SQLite fires the delete trigger for that implicit
	-- deletion only when recursive_triggers is on; changesets applied
	-- to remote copies set that pragma before their upserts.
	CREATE TRIGGER features_ai AFTER INSERT ON features BEGIN
		INSERT INTO features_fts(rowid, search_text)
		VALUES (new.rowid, new.search_text);
	END;
	CREATE TRIGGER features_ad AFTER DELETE ON features BEGIN
		INSERT INTO features_fts(features_fts, rowid, search_text)
		VALUES ('delete', old.rowid, old.search_text);
	END;
	CREATE TRIGGER features_au AFTER UPDATE ON features BEGIN
		INSERT INTO features_fts(features_fts, rowid, search_text)
		VALUES ('delete', old.rowid, old.search_text);
		INSERT INTO features_fts(rowid, search_text)
		VALUES (new.rowid, new.search_text);
	END;

	CREATE TABLE metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertBatch inserts one bounded batch of features in a single
// transaction. A duplicate gers_id is a fatal input error: it would
// silently mask an upstream data-quality problem if overwritten.
func (s *Store) InsertBatch(ctx context.Context, feats []model.Feature) error {
	if len(feats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return gazerrors.New(gazerrors.ErrCodeStoreWrite, "cannot begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO features (`+FeatureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return gazerrors.New(gazerrors.ErrCodeStoreWrite, "cannot prepare insert", err)
	}
	defer stmt.Close()

	for i := range feats {
		f := &feats[i]
		_, err := stmt.ExecContext(ctx,
			f.ID, f.Version, string(f.Kind), f.Name, f.Lat(), f.Lon(),
			f.BBox.Min[0], f.BBox.Min[1], f.BBox.Max[0], f.BBox.Max[1],
			f.Area, f.Population, f.Country, f.Region, f.SearchText)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return gazerrors.New(gazerrors.ErrCodeDuplicateID,
					fmt.Sprintf("duplicate gers_id %s in snapshot", f.ID), err)
			}
			return gazerrors.New(gazerrors.ErrCodeStoreWrite,
				fmt.Sprintf("cannot insert feature %s", f.ID), err)
		}
	}

	return tx.Commit()
}

// Finalize completes a build: creates the spatial indexes, compacts the
// FTS index, stamps metadata, and forces a WAL checkpoint. The store is
// queryable as soon as Finalize returns.
func (s *Store) Finalize(ctx context.Context, release string, recordCount int) error {
	steps := []string{
		// Composite ordering on the four bbox bounds turns a point
		// query into a range scan instead of a full table scan.
		`CREATE INDEX idx_bbox ON features(bbox_xmin, bbox_xmax, bbox_ymin, bbox_ymax)`,
		`CREATE INDEX idx_area ON features(area)`,
		`CREATE INDEX idx_kind ON features(kind)`,
		`INSERT INTO features_fts(features_fts) VALUES('optimize')`,
	}
	for _, q := range steps {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return gazerrors.New(gazerrors.ErrCodeStoreWrite, "finalize failed", err)
		}
	}

	meta := map[string]string{
		MetaKeyType:        storeType,
		MetaKeyRelease:     release,
		MetaKeyRecordCount: fmt.Sprint(recordCount),
	}
	for k, v := range meta {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
			return gazerrors.New(gazerrors.ErrCodeStoreWrite, "cannot stamp metadata", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return gazerrors.New(gazerrors.ErrCodeStoreWrite, "cannot checkpoint store", err)
	}
	return nil
}

// Metadata returns the value for key; ok is false when absent.
func (s *Store) Metadata(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Count returns the number of features in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM features`).Scan(&n)
	return n, err
}

// ForEach streams every feature in insertion order. It is how the diff
// engine makes its single pass over a new build.
func (s *Store) ForEach(ctx context.Context, fn func(model.Feature) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+FeatureColumns+` FROM features ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFeature reads one feature row laid out as FeatureColumns. Extra
// destinations receive any trailing columns (e.g. a bm25 score).
func scanFeature(sc scanner, extra ...any) (model.Feature, error) {
	var (
		f          model.Feature
		kind       string
		lat, lon   float64
		population sql.NullInt64
		country    sql.NullString
		region     sql.NullString
		xmin, ymin float64
		xmax, ymax float64
	)
	dest := []any{&f.ID, &f.Version, &kind, &f.Name, &lat, &lon,
		&xmin, &ymin, &xmax, &ymax, &f.Area,
		&population, &country, &region, &f.SearchText}
	dest = append(dest, extra...)
	if err := sc.Scan(dest...); err != nil {
		return model.Feature{}, err
	}

	f.Kind = model.Kind(kind)
	f.Location = orb.Point{lon, lat}
	f.BBox = orb.Bound{Min: orb.Point{xmin, ymin}, Max: orb.Point{xmax, ymax}}
	if population.Valid {
		v := population.Int64
		f.Population = &v
	}
	if country.Valid {
		v := country.String
		f.Country = &v
	}
	if region.Valid {
		v := region.String
		f.Region = &v
	}
	return f, nil
}

// Path returns the on-disk location, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// Close checkpoints and closes the store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// RemoveArtifacts deletes the store file and its WAL sidecars. Callers
// use it to discard a partial build; a failed build must never leave a
// usable-looking artifact behind.
func RemoveArtifacts(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}
