package data

import (
	"fmt"
	"os"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
)

// localCSVProvider serves a single user-supplied bhavcopy CSV file.
type localCSVProvider struct {
	path      string
	secondary Provider
}

// NewLocalCSVProvider builds a provider over a bhavcopy CSV on disk, with
// an optional fallback for dates the file cannot serve.
func NewLocalCSVProvider(path string, secondary Provider) Provider {
	return &localCSVProvider{path: path, secondary: secondary}
}

func (p *localCSVProvider) Secondary() Provider { return p.secondary }

// Snapshot reads the configured file. The file's own trade date is carried
// in its rows, so the requested date is only used when delegating to the
// fallback provider.
func (p *localCSVProvider) Snapshot(fetchDate time.Time) ([]bhav.Row, error) {
	f, err := os.Open(p.path)
	if err != nil {
		if p.secondary != nil {
			logger.Debugf("event=local_csv_missing path=%s falling back", p.path)
			return p.secondary.Snapshot(fetchDate)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrSnapshotUnavailable, p.path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	logger.Infof("event=local_csv_loaded path=%s rows=%d", p.path, len(rows))
	return rows, nil
}
