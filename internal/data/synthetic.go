package data

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/pricing"
)

// synthProvider generates a plausible one-day snapshot: a front-month
// future plus a weekly option grid priced under a flat reference vol with a
// light smile. Used by tests and offline demos; IV inversion against this
// data recovers the reference vol.
type synthProvider struct {
	underlying string
	spot       float64
	interval   float64
	refVol     float64
	rng        *rand.Rand
	secondary  Provider
}

// NewSyntheticProvider builds the generator. Seed fixes the noise for
// reproducible runs.
func NewSyntheticProvider(underlying string, spot float64, seed int64) Provider {
	return &synthProvider{
		underlying: underlying,
		spot:       spot,
		interval:   50,
		refVol:     0.12,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (p *synthProvider) Secondary() Provider { return p.secondary }

// Snapshot emits raw rows in the UDiFF column naming so the generated data
// exercises the same normalization path as real archives.
func (p *synthProvider) Snapshot(fetchDate time.Time) ([]bhav.Row, error) {
	expiry := nextWeekday(fetchDate, time.Wednesday)
	T := expiry.Sub(fetchDate).Hours() / 24 / 365

	dateStr := fetchDate.Format("2006-01-02")
	expiryStr := expiry.Format("2006-01-02")

	rows := []bhav.Row{{
		"TckrSymb":    p.underlying,
		"FinInstrmTp": "IDF",
		"XpryDt":      nextMonthEnd(fetchDate).Format("2006-01-02"),
		"OptnTp":      "XX",
		"StrkPric":    "0",
		"ClsPric":     fmt.Sprintf("%.2f", p.spot),
		"OpnIntrst":   "1500000",
		"TradDt":      dateStr,
	}}

	atm := math.Round(p.spot/p.interval) * p.interval
	for k := -10; k <= 10; k++ {
		strike := atm + float64(k)*p.interval
		// mild smile away from the money plus pricing noise
		vol := p.refVol * (1 + 0.004*float64(k*k))
		for _, side := range []bhav.OptionType{bhav.Call, bhav.Put} {
			premium := pricing.Price(side, p.spot, strike, T, 0.065, vol)
			premium += p.rng.Float64() * 0.05
			rows = append(rows, bhav.Row{
				"TckrSymb":    p.underlying,
				"FinInstrmTp": "IDO",
				"XpryDt":      expiryStr,
				"OptnTp":      string(side),
				"StrkPric":    fmt.Sprintf("%.2f", strike),
				"ClsPric":     fmt.Sprintf("%.2f", premium),
				"OpnIntrst":   fmt.Sprintf("%d", 10000+p.rng.Intn(90000)),
				"TradDt":      dateStr,
			})
		}
	}
	return rows, nil
}

func nextWeekday(from time.Time, day time.Weekday) time.Time {
	d := from.AddDate(0, 0, 1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func nextMonthEnd(from time.Time) time.Time {
	// last Thursday of the current month, or of the next month when already past
	d := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for d.Weekday() != time.Thursday {
		d = d.AddDate(0, 0, -1)
	}
	if !d.After(from) {
		d = time.Date(from.Year(), from.Month()+2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		for d.Weekday() != time.Thursday {
			d = d.AddDate(0, 0, -1)
		}
	}
	return d
}
