// Package analyze orchestrates one analysis run: snapshot in, normalized
// chain, spot, ATM implied volatility, priced legs and PnL metrics out.
//
// A run is pure over its inputs once the snapshot rows are in hand, so runs
// for different dates or underlyings can execute concurrently without
// coordination.
package analyze

import (
	"fmt"
	"math"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/calendar"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/chain"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/config"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/data"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/pricing"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/strategy"
)

// Request describes one analysis run.
type Request struct {
	Underlying    string             `json:"underlying"`
	ValuationDate time.Time          `json:"valuation_date"`
	RiskFreeRate  *float64           `json:"risk_free_rate,omitempty"` // nil uses the configured default
	Legs          []strategy.LegSpec `json:"legs"`
}

// Result is the full output of a run. PnL metrics are only populated when
// the ATM volatility is available (ATMIVValid).
type Result struct {
	Underlying    string    `json:"underlying"`
	ValuationDate time.Time `json:"valuation_date"`
	SnapshotDate  time.Time `json:"snapshot_date"`

	Spot         chain.SpotQuote       `json:"spot"`
	WeeklyExpiry time.Time             `json:"weekly_expiry"`
	TTM          float64               `json:"ttm_years"`
	ATMStrike    float64               `json:"atm_strike"`
	Volatility   pricing.ATMVolatility `json:"volatility"`
	ATMIVValid   bool                  `json:"atm_iv_valid"`

	Legs    []strategy.Leg        `json:"legs"`
	Skipped []strategy.SkippedLeg `json:"skipped_legs,omitempty"`

	ExpectedPnL float64 `json:"expected_pnl"`
	ProbProfit  float64 `json:"prob_profit"`
	MaxProfit   float64 `json:"max_profit"`
	MaxLoss     float64 `json:"max_loss"`

	Normalization bhav.NormalizeReport `json:"normalization"`
}

// Engine binds a configuration and a snapshot provider.
type Engine struct {
	cfg  config.Config
	prov data.Provider
}

func NewEngine(cfg config.Config, prov data.Provider) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// nearSnapshots is the optional provider upgrade for archive-backed
// providers that can walk back to the last available trading day.
type nearSnapshots interface {
	SnapshotNear(fetchDate time.Time) ([]bhav.Row, time.Time, error)
}

// Run executes one analysis. Whole-run failures (no snapshot, no futures,
// no weekly options, no complete strike, stale snapshot) return an error
// naming the missing upstream data; per-leg and per-row failures are
// reported inside the Result.
func (e *Engine) Run(req Request) (*Result, error) {
	logger.Infof("event=run_started underlying=%s valuation=%s legs=%d",
		req.Underlying, req.ValuationDate.Format("2006-01-02"), len(req.Legs))

	rate := e.cfg.Market.RiskFreeRate
	if req.RiskFreeRate != nil {
		rate = *req.RiskFreeRate
	}

	rows, snapDate, err := e.fetch(req.ValuationDate)
	if err != nil {
		return nil, err
	}

	records, rep := bhav.Normalize(rows)
	logger.Infof("event=normalized rows=%d kept=%d skipped=%d", rep.Rows, rep.Kept, rep.Skipped)
	for reason, n := range rep.Reasons {
		logger.Debugf("event=rows_skipped reason=%s count=%d", reason, n)
	}

	res := &Result{
		Underlying:    req.Underlying,
		ValuationDate: req.ValuationDate,
		SnapshotDate:  snapDate,
		Normalization: rep,
	}

	if err := validateSnapshot(records, req.ValuationDate); err != nil {
		return nil, err
	}

	res.Spot, err = chain.ResolveSpot(records, req.Underlying)
	if err != nil {
		return nil, fmt.Errorf("spot resolution: %w", err)
	}
	logger.Infof("event=spot_resolved spot=%.2f source_expiry=%s",
		res.Spot.Price, res.Spot.SourceExpiry.Format("2006-01-02"))

	weekly, err := chain.WeeklyOptions(records, req.Underlying, e.cfg.Market.MinClosePrice)
	if err != nil {
		return nil, fmt.Errorf("weekly chain: %w", err)
	}
	res.WeeklyExpiry = weekly[0].Expiry
	logger.Infof("event=weekly_chain expiry=%s contracts=%d",
		res.WeeklyExpiry.Format("2006-01-02"), len(weekly))

	atm, err := chain.SelectATM(weekly, res.Spot.Price)
	if err != nil {
		return nil, fmt.Errorf("atm selection: %w", err)
	}
	res.ATMStrike = atm.Strike
	res.TTM = calendar.TimeToMaturity(req.ValuationDate, res.WeeklyExpiry)

	e.checkFirstLeg(req.Legs, atm.Strike)

	vol, err := pricing.ATMImpliedVol(atm.Call.ClosePrice, atm.Put.ClosePrice,
		res.Spot.Price, atm.Strike, res.TTM, rate)
	res.Volatility = vol
	if err != nil {
		// the averaged figure is unavailable but the per-side results and
		// leg premiums still stand, so the run carries on without PnL
		logger.Errorf("event=atm_iv_failed err=%v", err)
	} else {
		res.ATMIVValid = true
		logger.Infof("event=atm_iv strike=%.2f iv=%.4f ttm=%.4f", atm.Strike, vol.Mean, res.TTM)
	}

	if len(req.Legs) > 0 {
		legs, skipped, err := strategy.ResolveLegs(req.Legs, weekly, res.Spot.Price, e.cfg.Market.StrikeInterval)
		if err != nil {
			return nil, fmt.Errorf("resolving legs: %w", err)
		}
		res.Legs, res.Skipped = legs, skipped

		if res.ATMIVValid {
			spots, pnls := strategy.Curve(res.Spot.Price, legs, res.TTM, vol.Mean, rate)
			res.ExpectedPnL, res.ProbProfit = strategy.ExpectedMetrics(spots, pnls, res.Spot.Price, vol.Mean, res.TTM)
			res.MaxProfit, res.MaxLoss = extremes(pnls)
			logger.Infof("event=pnl_metrics expected=%.2f prob_profit=%.4f max_profit=%.2f max_loss=%.2f",
				res.ExpectedPnL, res.ProbProfit, res.MaxProfit, res.MaxLoss)
		}
	}

	return res, nil
}

// fetch pulls snapshot rows for the valuation date, using the provider's
// working-day fallback when it offers one.
func (e *Engine) fetch(valuation time.Time) ([]bhav.Row, time.Time, error) {
	if near, ok := e.prov.(nearSnapshots); ok {
		return near.SnapshotNear(valuation)
	}
	rows, err := e.prov.Snapshot(valuation)
	return rows, valuation, err
}

// validateSnapshot rejects data that cannot price anything for the
// valuation date: a snapshot from the future, or one whose options have all
// expired.
func validateSnapshot(records []bhav.ContractRecord, valuation time.Time) error {
	var tradeDate, nearestExpiry time.Time
	for _, r := range records {
		if tradeDate.IsZero() && !r.TradeDate.IsZero() {
			tradeDate = r.TradeDate
		}
		if r.IsOption() && (nearestExpiry.IsZero() || r.Expiry.Before(nearestExpiry)) {
			nearestExpiry = r.Expiry
		}
	}

	if !tradeDate.IsZero() && tradeDate.After(valuation) {
		return fmt.Errorf("bhavcopy date %s is later than valuation date %s",
			tradeDate.Format("2006-01-02"), valuation.Format("2006-01-02"))
	}
	if !nearestExpiry.IsZero() && !nearestExpiry.After(valuation) {
		return fmt.Errorf("nearest expiry %s is not after valuation date %s",
			nearestExpiry.Format("2006-01-02"), valuation.Format("2006-01-02"))
	}
	return nil
}

// checkFirstLeg warns when the user's reference leg sits far from the
// computed ATM; one strike interval of drift is normal.
func (e *Engine) checkFirstLeg(legs []strategy.LegSpec, atmStrike float64) {
	if len(legs) == 0 || legs[0].Strike <= 0 {
		return
	}
	dist := math.Abs(legs[0].Strike - atmStrike)
	if dist > 2*e.cfg.Market.StrikeInterval {
		logger.Errorf("event=atm_mismatch user_strike=%.2f computed_atm=%.2f distance=%.2f",
			legs[0].Strike, atmStrike, dist)
	} else {
		logger.Debugf("event=atm_check user_strike=%.2f computed_atm=%.2f distance=%.2f",
			legs[0].Strike, atmStrike, dist)
	}
}

func extremes(vals []float64) (max, min float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	max, min = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}
