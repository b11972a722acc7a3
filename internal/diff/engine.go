package diff

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
	"github.com/overture-tools/gazetteer/internal/model"
	"github.com/overture-tools/gazetteer/internal/store"
)

// Artifact file names written into the output directory.
const (
	UpsertsFile  = "upserts.sql"
	DeletesFile  = "deletes.sql"
	MetadataFile = "metadata.sql"
	StatsFile    = "stats.json"
)

// defaultChunkSize controls progress markers in the upsert log.
const defaultChunkSize = 10000

// Options configures a diff run.
type Options struct {
	// Release is the dataset release the changeset was computed
	// against; it is stamped into metadata.sql and stats.json.
	Release string

	// ChunkSize controls how often a progress comment is emitted into
	// the upsert log (defaults to 10000).
	ChunkSize int
}

// Engine computes changesets. The baseline mapping is read-only input;
// the engine never mutates it.
type Engine struct {
	store     *store.Store
	baseline  map[string]int64
	release   string
	chunkSize int
}

// New creates an Engine comparing the given store against baseline.
func New(s *store.Store, baseline map[string]int64, opts Options) *Engine {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &Engine{
		store:     s,
		baseline:  baseline,
		release:   opts.Release,
		chunkSize: chunk,
	}
}

// Run computes the changeset and writes the four artifacts into outDir.
// Artifacts are written through temp files and renamed into place only
// on success, so a failed run leaves nothing usable behind.
//
// Classification per new record: absent from baseline means insert; a
// strictly newer version means update; otherwise unchanged. Insert and
// update emit the identical INSERT OR REPLACE statement, so re-applying
// a changeset after a crashed apply is a no-op on the second pass.
// Baseline ids never seen in the new set become deletes.
func (e *Engine) Run(ctx context.Context, outDir string) (*model.Stats, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeOutputPath,
			fmt.Sprintf("cannot create output directory %s", outDir), err)
	}

	upserts, err := renameio.TempFile("", filepath.Join(outDir, UpsertsFile))
	if err != nil {
		return nil, gazerrors.ResourceError("cannot stage upserts file", err)
	}
	defer upserts.Cleanup()

	deletes, err := renameio.TempFile("", filepath.Join(outDir, DeletesFile))
	if err != nil {
		return nil, gazerrors.ResourceError("cannot stage deletes file", err)
	}
	defer deletes.Cleanup()

	stats := &model.Stats{Release: e.release}
	seen := make(map[string]struct{}, len(e.baseline))

	uw := bufio.NewWriter(upserts)
	fmt.Fprintf(uw, "-- Upserts: new and changed records\n\n")
	// A REPLACE conflict implicitly deletes the old row; the pragma
	// makes that deletion fire the FTS delete trigger on the target.
	fmt.Fprintf(uw, "PRAGMA recursive_triggers = ON;\n\n")

	written := 0
	err = e.store.ForEach(ctx, func(f model.Feature) error {
		seen[f.ID] = struct{}{}
		stats.TotalNew++

		baseVersion, known := e.baseline[f.ID]
		switch {
		case !known:
			stats.Inserts++
		case f.Version > baseVersion:
			stats.Updates++
		default:
			stats.Unchanged++
			return nil
		}

		fmt.Fprintf(uw, "INSERT OR REPLACE INTO features (%s) VALUES (%s);\n",
			store.FeatureColumns, featureValues(&f))
		written++
		if written%e.chunkSize == 0 {
			fmt.Fprintf(uw, "-- Progress: %d records\n", written)
		}
		return nil
	})
	if err != nil {
		return nil, gazerrors.ResourceError("changeset pass failed", err)
	}

	dw := bufio.NewWriter(deletes)
	fmt.Fprintf(dw, "-- Deletes: records removed upstream\n\n")

	// Sorted order keeps the delete log deterministic across runs.
	baselineIDs := make([]string, 0, len(e.baseline))
	for id := range e.baseline {
		baselineIDs = append(baselineIDs, id)
	}
	sort.Strings(baselineIDs)
	for _, id := range baselineIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		stats.Deletes++
		fmt.Fprintf(dw, "DELETE FROM features WHERE gers_id = %s;\n", quoteString(id))
	}

	if err := uw.Flush(); err != nil {
		return nil, gazerrors.ResourceError("cannot write upserts", err)
	}
	if err := dw.Flush(); err != nil {
		return nil, gazerrors.ResourceError("cannot write deletes", err)
	}

	metadata := fmt.Sprintf("-- Update release metadata\n"+
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('overture_release', %s);\n"+
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('updated_at', datetime('now'));\n",
		quoteString(e.release))

	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, gazerrors.Wrap(gazerrors.ErrCodeInternal, err)
	}

	if err := upserts.CloseAtomicallyReplace(); err != nil {
		return nil, gazerrors.ResourceError("cannot finalize upserts", err)
	}
	if err := deletes.CloseAtomicallyReplace(); err != nil {
		return nil, gazerrors.ResourceError("cannot finalize deletes", err)
	}
	if err := renameio.WriteFile(filepath.Join(outDir, MetadataFile), []byte(metadata), 0o644); err != nil {
		return nil, gazerrors.ResourceError("cannot write metadata", err)
	}
	if err := renameio.WriteFile(filepath.Join(outDir, StatsFile), statsJSON, 0o644); err != nil {
		return nil, gazerrors.ResourceError("cannot write stats", err)
	}

	slog.Info("diff_complete",
		slog.String("release", stats.Release),
		slog.Int("total_new", stats.TotalNew),
		slog.Int("inserts", stats.Inserts),
		slog.Int("updates", stats.Updates),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("deletes", stats.Deletes))
	return stats, nil
}

// featureValues renders a feature's attributes as SQL literals in
// FeatureColumns order.
func featureValues(f *model.Feature) string {
	values := []any{
		f.ID, f.Version, string(f.Kind), f.Name, f.Lat(), f.Lon(),
		f.BBox.Min[0], f.BBox.Min[1], f.BBox.Max[0], f.BBox.Max[1],
		f.Area, f.Population, f.Country, f.Region, f.SearchText,
	}
	out := make([]byte, 0, 256)
	for i, v := range values {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, formatValue(v)...)
	}
	return string(out)
}
