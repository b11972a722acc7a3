// Package diff computes the minimal changeset that converges a remote
// copy of the gazetteer with a freshly built store. It compares
// per-record version numbers against a baseline snapshot of the remote
// side and emits ordered, idempotent statement logs.
package diff

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
)

// LoadBaseline reads the remote id→version mapping from a CSV export.
//
// Column names are matched case-insensitively and normalized to the
// fixed internal schema (gers_id, version) before anything else touches
// the data; this is the one place a flexible input format is tolerated.
// A file without both columns is unusable and fails the whole diff.
// Individual malformed rows are skipped with a warning.
func LoadBaseline(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeBaselineColumns,
			fmt.Sprintf("cannot open baseline %s", path), err)
	}
	defer f.Close()

	return readBaseline(f)
}

func readBaseline(r io.Reader) (map[string]int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, gazerrors.BaselineError("baseline has no header row", err)
	}

	idCol, verCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "gers_id":
			idCol = i
		case "version":
			verCol = i
		}
	}
	if idCol < 0 || verCol < 0 {
		return nil, gazerrors.BaselineError(
			fmt.Sprintf("baseline missing required columns, found: %v", header), nil)
	}

	versions := make(map[string]int64)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			slog.Warn("baseline_row_skipped",
				slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		if idCol >= len(record) || verCol >= len(record) {
			slog.Warn("baseline_row_skipped",
				slog.Int("line", line), slog.String("error", "too few fields"))
			continue
		}

		id := strings.TrimSpace(record[idCol])
		verStr := strings.TrimSpace(record[verCol])
		if id == "" || verStr == "" {
			continue
		}

		version, err := strconv.ParseInt(verStr, 10, 64)
		if err != nil {
			slog.Warn("baseline_row_skipped",
				slog.Int("line", line),
				slog.String("gers_id", id),
				slog.String("version", verStr))
			continue
		}
		versions[id] = version
	}

	return versions, nil
}
