// Package data supplies bhavcopy snapshots to the analyzer.
//
// Three provider implementations exist:
//   - localCSVProvider: a user-supplied bhavcopy CSV on disk
//   - nseArchiveProvider: the NSE F&O archives over HTTP (zip download,
//     rate limited, with a compressed on-disk cache)
//   - synthProvider: generated data for tests and offline demos
//
// Providers chain through Secondary: a provider that cannot serve a request
// delegates to its fallback, mirroring how a local file is preferred with
// the archive as backup.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
)

// Provider supplies the raw rows of one bhavcopy snapshot.
type Provider interface {
	// Snapshot returns the raw rows of the bhavcopy for a trading date.
	Snapshot(fetchDate time.Time) ([]bhav.Row, error)

	// Secondary returns the fallback provider, or nil.
	Secondary() Provider
}

// ErrSnapshotUnavailable means no bhavcopy exists for the requested date on
// any provider in the chain.
var ErrSnapshotUnavailable = errors.New("bhavcopy snapshot unavailable")

// ReadCSV parses bhavcopy CSV content into raw rows keyed by the header
// line. Short records are padded so a ragged trailing column never drops a
// row here; validity is the normalizer's call.
func ReadCSV(r io.Reader) ([]bhav.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bhavcopy csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("bhavcopy csv has no data rows")
	}

	header := records[0]
	rows := make([]bhav.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(bhav.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
