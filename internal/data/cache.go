package data

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
)

// snapshotCache stores raw bhavcopy CSV bytes on disk, zstd-compressed.
// A daily snapshot runs to a few megabytes of CSV and compresses well, so
// repeated runs against the same trading date never re-hit the archive.
type snapshotCache struct {
	dir string
}

func newSnapshotCache(dir string) *snapshotCache {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Errorf("event=cache_disabled dir=%s err=%v", dir, err)
		return nil
	}
	return &snapshotCache{dir: dir}
}

func (c *snapshotCache) path(fetchDate time.Time) string {
	return filepath.Join(c.dir, fmt.Sprintf("BhavCopy_%s.csv.zst", fetchDate.Format("20060102")))
}

// Get returns the cached CSV bytes for a date, or false on any miss or
// decode failure. A corrupt entry counts as a miss and will be rewritten.
func (c *snapshotCache) Get(fetchDate time.Time) ([]byte, bool) {
	raw, err := os.ReadFile(c.path(fetchDate))
	if err != nil {
		return nil, false
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false
	}
	defer dec.Close()

	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		logger.Debugf("event=cache_corrupt path=%s err=%v", c.path(fetchDate), err)
		return nil, false
	}
	return out, true
}

// Put stores CSV bytes for a date. Failures are logged and swallowed; the
// cache is an optimization, never a correctness dependency.
func (c *snapshotCache) Put(fetchDate time.Time, csvBytes []byte) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return
	}
	defer enc.Close()

	compressed := enc.EncodeAll(csvBytes, nil)
	if err := os.WriteFile(c.path(fetchDate), compressed, 0o644); err != nil {
		logger.Debugf("event=cache_write_failed path=%s err=%v", c.path(fetchDate), err)
		return
	}
	logger.Tracef("event=cache_stored path=%s raw=%d compressed=%d", c.path(fetchDate), len(csvBytes), len(compressed))
}
