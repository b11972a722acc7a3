// Package loader reads columnar feature snapshots. A snapshot is a
// Parquet file of pre-flattened Overture feature rows; the loader yields
// them lazily through a forward-only iterator so a build never holds the
// whole snapshot in memory.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
	"github.com/overture-tools/gazetteer/internal/model"
)

// readBatch is the number of rows decoded per Parquet read call.
const readBatch = 1024

// featureRow mirrors the snapshot's column layout.
type featureRow struct {
	GersID     string  `parquet:"gers_id"`
	Version    int64   `parquet:"version"`
	Subtype    string  `parquet:"subtype"`
	Name       string  `parquet:"primary_name"`
	Lat        float64 `parquet:"lat"`
	Lon        float64 `parquet:"lon"`
	BboxXmin   float64 `parquet:"bbox_xmin"`
	BboxYmin   float64 `parquet:"bbox_ymin"`
	BboxXmax   float64 `parquet:"bbox_xmax"`
	BboxYmax   float64 `parquet:"bbox_ymax"`
	Population *int64  `parquet:"population,optional"`
	Country    *string `parquet:"country,optional"`
	Region     *string `parquet:"region,optional"`
	SearchText string  `parquet:"search_text"`
}

// Loader iterates over the features of one snapshot file.
//
// Usage follows the bufio.Scanner pattern:
//
//	for l.Next() {
//	    f := l.Feature()
//	    ...
//	}
//	if err := l.Err(); err != nil { ... }
type Loader struct {
	file   *os.File
	reader *parquet.GenericReader[featureRow]

	buf []featureRow
	n   int
	pos int

	cur  model.Feature
	read int
	err  error
	done bool
}

// Open opens a snapshot file for iteration.
func Open(path string) (*Loader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeSnapshotNotFound,
			fmt.Sprintf("cannot open snapshot %s", path), err)
	}

	return &Loader{
		file:   f,
		reader: parquet.NewGenericReader[featureRow](f),
		buf:    make([]featureRow, readBatch),
	}, nil
}

// Next advances to the next feature. It returns false at the end of the
// snapshot or on the first malformed row; Err distinguishes the two.
func (l *Loader) Next() bool {
	if l.err != nil || l.done {
		return false
	}

	if l.pos >= l.n {
		n, err := l.reader.Read(l.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			l.err = gazerrors.InputError("snapshot read failed", err).
				WithDetail("records_processed", fmt.Sprint(l.read))
			return false
		}
		l.n, l.pos = n, 0
		if n == 0 {
			l.done = true
			return false
		}
	}

	row := l.buf[l.pos]
	l.pos++

	f := model.Feature{
		ID:         row.GersID,
		Version:    row.Version,
		Kind:       model.Kind(row.Subtype),
		Name:       row.Name,
		Location:   orb.Point{row.Lon, row.Lat},
		BBox:       orb.Bound{Min: orb.Point{row.BboxXmin, row.BboxYmin}, Max: orb.Point{row.BboxXmax, row.BboxYmax}},
		Population: row.Population,
		Country:    row.Country,
		Region:     row.Region,
		SearchText: row.SearchText,
	}
	f.Area = model.BoundArea(f.BBox)

	if err := f.Validate(); err != nil {
		l.err = gazerrors.InputError(err.Error(), err).
			WithDetail("records_processed", fmt.Sprint(l.read))
		return false
	}

	l.cur = f
	l.read++
	return true
}

// Feature returns the feature produced by the last successful Next call.
func (l *Loader) Feature() model.Feature { return l.cur }

// Count returns the number of features surfaced so far.
func (l *Loader) Count() int { return l.read }

// Err returns the fatal error that stopped iteration, if any.
func (l *Loader) Err() error { return l.err }

// Close releases the underlying file.
func (l *Loader) Close() error {
	if cerr := l.reader.Close(); cerr != nil {
		_ = l.file.Close()
		return cerr
	}
	return l.file.Close()
}
