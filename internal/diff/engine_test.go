package diff

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/overture-tools/gazetteer/internal/model"
	"github.com/overture-tools/gazetteer/internal/store"
)

func pop(n int64) *int64   { return &n }
func str(s string) *string { return &s }

func locality(id string, version int64, name string, lon, lat float64) model.Feature {
	b := orb.Bound{
		Min: orb.Point{lon - 0.1, lat - 0.1},
		Max: orb.Point{lon + 0.1, lat + 0.1},
	}
	return model.Feature{
		ID:         id,
		Version:    version,
		Kind:       model.KindLocality,
		Name:       name,
		Location:   orb.Point{lon, lat},
		BBox:       b,
		Area:       model.BoundArea(b),
		Population: pop(100000),
		Country:    str("DE"),
		SearchText: strings.ToLower(name),
	}
}

func newDiffStore(t *testing.T, feats []model.Feature) *store.Store {
	t.Helper()
	s, err := store.Create("", store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InsertBatch(context.Background(), feats))
	require.NoError(t, s.Finalize(context.Background(), "2026-06-25.0", len(feats)))
	return s
}

func TestRunClassification(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 2, "Aachen", 6.08, 50.77),
		locality("b", 2, "Bonn", 7.10, 50.73),
		locality("c", 1, "Celle", 10.08, 52.62),
	})
	baseline := map[string]int64{"a": 1, "b": 2, "d": 1}

	outDir := t.TempDir()
	eng := New(s, baseline, Options{Release: "2026-06-25.0"})
	stats, err := eng.Run(context.Background(), outDir)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalNew)
	assert.Equal(t, 1, stats.Inserts)   // c is new
	assert.Equal(t, 1, stats.Updates)   // a moved 1 -> 2
	assert.Equal(t, 1, stats.Unchanged) // b stayed at 2
	assert.Equal(t, 1, stats.Deletes)   // d vanished
	assert.Equal(t, 3, stats.Changes())

	upserts := readArtifact(t, outDir, UpsertsFile)
	assert.Contains(t, upserts, "'a'")
	assert.Contains(t, upserts, "'c'")
	assert.NotContains(t, upserts, "'b'")
	assert.NotContains(t, upserts, "'d'")

	deletes := readArtifact(t, outDir, DeletesFile)
	assert.Contains(t, deletes, "DELETE FROM features WHERE gers_id = 'd';")
	assert.NotContains(t, deletes, "'a'")
}

func TestRunIdenticalSnapshots(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 1, "Aachen", 6.08, 50.77),
		locality("b", 1, "Bonn", 7.10, 50.73),
	})
	baseline := map[string]int64{"a": 1, "b": 1}

	outDir := t.TempDir()
	stats, err := New(s, baseline, Options{Release: "2026-06-25.0"}).
		Run(context.Background(), outDir)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalNew)
	assert.Equal(t, 2, stats.Unchanged)
	assert.Zero(t, stats.Inserts)
	assert.Zero(t, stats.Updates)
	assert.Zero(t, stats.Deletes)
	assert.Zero(t, stats.Changes())
}

func TestRunEmptyNewSet(t *testing.T) {
	s := newDiffStore(t, nil)

	outDir := t.TempDir()
	stats, err := New(s, map[string]int64{"a": 1}, Options{Release: "r"}).
		Run(context.Background(), outDir)
	require.NoError(t, err)

	assert.Zero(t, stats.TotalNew)
	assert.Equal(t, 1, stats.Deletes)
	assert.Contains(t, readArtifact(t, outDir, DeletesFile),
		"DELETE FROM features WHERE gers_id = 'a';")
}

func TestRunEmptyBaseline(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 1, "Aachen", 6.08, 50.77),
	})

	outDir := t.TempDir()
	stats, err := New(s, map[string]int64{}, Options{Release: "r"}).
		Run(context.Background(), outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Inserts)
	assert.Zero(t, stats.Deletes)
}

func TestRunStatsFile(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 3, "Aachen", 6.08, 50.77),
	})

	outDir := t.TempDir()
	_, err := New(s, map[string]int64{"a": 1, "gone": 4}, Options{Release: "2026-06-25.0"}).
		Run(context.Background(), outDir)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(outDir, StatsFile))
	require.NoError(t, err)

	var got model.Stats
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2026-06-25.0", got.Release)
	assert.Equal(t, 1, got.Updates)
	assert.Equal(t, 1, got.Deletes)

	metadata := readArtifact(t, outDir, MetadataFile)
	assert.Contains(t, metadata, "'overture_release', '2026-06-25.0'")
	assert.Contains(t, metadata, "datetime('now')")
}

// Applying the upsert log twice must land on the same state as applying
// it once; INSERT OR REPLACE makes a re-run after a crashed apply safe.
func TestRunUpsertsIdempotent(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 2, "Aachen", 6.08, 50.77),
		locality("c", 1, "Celle", 10.08, 52.62),
	})

	outDir := t.TempDir()
	_, err := New(s, map[string]int64{"a": 1}, Options{Release: "r"}).
		Run(context.Background(), outDir)
	require.NoError(t, err)

	// Seed a target store on disk, then apply the log against it raw.
	targetPath := filepath.Join(t.TempDir(), "target.db")
	target, err := store.Create(targetPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, target.Finalize(context.Background(), "old", 0))
	require.NoError(t, target.Close())

	db, err := sql.Open("sqlite", targetPath)
	require.NoError(t, err)
	defer db.Close()

	stmts := sqlStatements(t, filepath.Join(outDir, UpsertsFile))
	require.NotEmpty(t, stmts)
	// The log enables recursive_triggers so a REPLACE conflict fires
	// the FTS delete trigger for the row it displaces.
	assert.Equal(t, "PRAGMA recursive_triggers = ON;", stmts[0])

	applyAll := func() {
		for _, stmt := range stmts {
			_, err := db.Exec(stmt)
			require.NoError(t, err, "statement: %s", stmt)
		}
	}
	applyAll()
	first := snapshotVersions(t, db)
	applyAll()
	second := snapshotVersions(t, db)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]int64{"a": 2, "c": 1}, second)

	// The replaced rows must not leave stale FTS entries behind: one
	// row named Aachen means exactly one FTS match after both applies.
	var ftsCount int
	require.NoError(t, db.QueryRow(
		`SELECT count(*) FROM features_fts WHERE features_fts MATCH 'aachen'`).Scan(&ftsCount))
	assert.Equal(t, 1, ftsCount)
}

func TestRunArtifactsDisjoint(t *testing.T) {
	s := newDiffStore(t, []model.Feature{
		locality("a", 5, "Aachen", 6.08, 50.77),
		locality("b", 1, "Bonn", 7.10, 50.73),
	})
	baseline := map[string]int64{"a": 1, "x": 1, "y": 2}

	outDir := t.TempDir()
	_, err := New(s, baseline, Options{Release: "r"}).Run(context.Background(), outDir)
	require.NoError(t, err)

	upsertIDs := extractIDs(sqlStatements(t, filepath.Join(outDir, UpsertsFile)))
	deleteIDs := extractIDs(sqlStatements(t, filepath.Join(outDir, DeletesFile)))
	for id := range upsertIDs {
		assert.NotContains(t, deleteIDs, id)
	}
	assert.Len(t, deleteIDs, 2)
}

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(raw)
}

// sqlStatements returns the executable lines of a statement log,
// dropping comments and blanks. The engine writes one statement per line.
func sqlStatements(t *testing.T, path string) []string {
	t.Helper()
	var stmts []string
	for _, line := range strings.Split(readArtifactPath(t, path), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		stmts = append(stmts, line)
	}
	return stmts
}

func readArtifactPath(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func snapshotVersions(t *testing.T, db *sql.DB) map[string]int64 {
	t.Helper()
	rows, err := db.Query(`SELECT gers_id, version FROM features ORDER BY gers_id`)
	require.NoError(t, err)
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var v int64
		require.NoError(t, rows.Scan(&id, &v))
		out[id] = v
	}
	require.NoError(t, rows.Err())
	return out
}

// extractIDs pulls the first single-quoted token out of each statement.
func extractIDs(stmts []string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, stmt := range stmts {
		start := strings.Index(stmt, "'")
		if start < 0 {
			continue
		}
		end := strings.Index(stmt[start+1:], "'")
		if end < 0 {
			continue
		}
		ids[stmt[start+1:start+1+end]] = struct{}{}
	}
	return ids
}
