package data

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/calendar"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/config"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
)

// nseArchiveProvider downloads F&O bhavcopy zips from the NSE archives.
type nseArchiveProvider struct {
	baseURL   string
	userAgent string
	referer   string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *snapshotCache
	lookback  int
	secondary Provider
}

// NewNSEArchiveProvider builds the archive-backed provider. Requests carry
// browser headers (the archive host rejects bare clients with 403) and are
// throttled to the configured per-minute limit.
func NewNSEArchiveProvider(cfg config.NSEConfig, secondary Provider) Provider {
	logger.Infof("event=nse_provider_init base_url=%s cache_dir=%s", cfg.BaseURL, cfg.CacheDir)

	perMin := cfg.RequestsPerMinute
	if perMin <= 0 {
		perMin = 20
	}

	return &nseArchiveProvider{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		cache:     newSnapshotCache(cfg.CacheDir),
		lookback:  cfg.MaxLookbackDays,
		secondary: secondary,
	}
}

func (p *nseArchiveProvider) Secondary() Provider { return p.secondary }

// bhavcopyFilename is the UDiFF archive naming scheme.
func bhavcopyFilename(fetchDate time.Time) string {
	return fmt.Sprintf("BhavCopy_NSE_FO_0_0_0_%s_F_0000.csv", fetchDate.Format("20060102"))
}

// Snapshot fetches the bhavcopy for the exact date, consulting the cache
// first. A missing date is ErrSnapshotUnavailable; use SnapshotNear for the
// working-day fallback behavior.
func (p *nseArchiveProvider) Snapshot(fetchDate time.Time) ([]bhav.Row, error) {
	if p.cache != nil {
		if csvBytes, ok := p.cache.Get(fetchDate); ok {
			logger.Debugf("event=cache_hit date=%s", fetchDate.Format("2006-01-02"))
			return ReadCSV(bytes.NewReader(csvBytes))
		}
	}

	csvBytes, err := p.download(fetchDate)
	if err != nil {
		if p.secondary != nil {
			logger.Debugf("event=archive_miss date=%s falling back err=%v", fetchDate.Format("2006-01-02"), err)
			return p.secondary.Snapshot(fetchDate)
		}
		return nil, err
	}

	if p.cache != nil {
		p.cache.Put(fetchDate, csvBytes)
	}
	return ReadCSV(bytes.NewReader(csvBytes))
}

// SnapshotNear fetches the bhavcopy for the date, walking back over
// weekends and holidays when the exact date has no data. Returns the rows
// and the date actually served. The walk is bounded by the configured
// lookback window.
func (p *nseArchiveProvider) SnapshotNear(fetchDate time.Time) ([]bhav.Row, time.Time, error) {
	lookback := p.lookback
	if lookback <= 0 {
		lookback = 30
	}

	d := fetchDate
	if calendar.IsMarketHoliday(d) {
		d = calendar.PreviousWorkingDay(d)
	}

	for hop := 0; hop <= lookback; hop++ {
		rows, err := p.Snapshot(d)
		if err == nil {
			if !d.Equal(fetchDate) {
				logger.Infof("event=snapshot_fallback requested=%s served=%s",
					fetchDate.Format("2006-01-02"), d.Format("2006-01-02"))
			}
			return rows, d, nil
		}
		logger.Debugf("event=snapshot_miss date=%s err=%v", d.Format("2006-01-02"), err)
		d = calendar.PreviousWorkingDay(d)
		if fetchDate.Sub(d) > time.Duration(lookback)*24*time.Hour {
			break
		}
	}
	return nil, time.Time{}, fmt.Errorf("%w: no data within %d days before %s",
		ErrSnapshotUnavailable, lookback, fetchDate.Format("2006-01-02"))
}

// download retrieves and unpacks the zip archive for one date.
func (p *nseArchiveProvider) download(fetchDate time.Time) ([]byte, error) {
	member := bhavcopyFilename(fetchDate)
	url := p.baseURL + member + ".zip"

	if err := p.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	logger.Infof("event=archive_fetch url=%s", url)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/zip")
	req.Header.Set("Referer", p.referer)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrSnapshotUnavailable, url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("downloaded file is not a valid zip archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("csv member %s not found inside the zip", member)
}
