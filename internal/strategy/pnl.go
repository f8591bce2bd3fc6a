package strategy

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/pricing"
)

// Curve sampling: 1500 points across 0.7x..1.3x of the entry spot.
const (
	curvePoints    = 1500
	curveLowRatio  = 0.7
	curveHighRatio = 1.3
)

// LegPnL values a single leg at spot S with time T remaining, under a flat
// volatility sigma. A bought leg earns price minus premium paid; a sold leg
// the negation. Scaled by quantity.
func LegPnL(S float64, leg Leg, T, sigma, r float64) float64 {
	price := pricing.Price(leg.Spec.OptionType, S, leg.Strike, T, r, sigma)
	pnl := price - leg.Premium
	if leg.Spec.Side == Sell {
		pnl = -pnl
	}
	return pnl * float64(leg.Spec.Qty)
}

// PnL values the whole position at spot S.
func PnL(S float64, legs []Leg, T, sigma, r float64) float64 {
	total := 0.0
	for _, leg := range legs {
		total += LegPnL(S, leg, T, sigma, r)
	}
	return total
}

// Curve samples the position PnL across a band of terminal spot prices
// around S0. Both slices have curvePoints entries, spots ascending.
func Curve(S0 float64, legs []Leg, T, sigma, r float64) (spots, pnls []float64) {
	spots = make([]float64, curvePoints)
	pnls = make([]float64, curvePoints)
	lo, hi := curveLowRatio*S0, curveHighRatio*S0
	step := (hi - lo) / float64(curvePoints-1)
	for i := range spots {
		s := lo + float64(i)*step
		spots[i] = s
		pnls[i] = PnL(s, legs, T, sigma, r)
	}
	return spots, pnls
}

// spotDensity is the lognormal terminal-spot density implied by a flat
// volatility: ln(S_T) ~ N(ln(S0) - sigma^2 T / 2, sigma^2 T).
func spotDensity(S, S0, sigma, T float64) float64 {
	dist := distuv.Normal{
		Mu:    math.Log(S0) - 0.5*sigma*sigma*T,
		Sigma: sigma * math.Sqrt(T),
	}
	return dist.Prob(math.Log(S)) / S
}

// ExpectedMetrics integrates the PnL curve against the lognormal spot
// density, returning the expected PnL and the probability of finishing
// profitable. spots must be ascending; trapezoidal integration.
func ExpectedMetrics(spots, pnls []float64, S0, sigma, T float64) (expectedPnL, probProfit float64) {
	if len(spots) < 2 || len(spots) != len(pnls) {
		return 0, 0
	}

	probs := make([]float64, len(spots))
	for i, s := range spots {
		probs[i] = spotDensity(s, S0, sigma, T)
	}

	for i := 1; i < len(spots); i++ {
		dx := spots[i] - spots[i-1]
		expectedPnL += 0.5 * dx * (pnls[i]*probs[i] + pnls[i-1]*probs[i-1])
		if pnls[i] > 0 && pnls[i-1] > 0 {
			probProfit += 0.5 * dx * (probs[i] + probs[i-1])
		}
	}
	return expectedPnL, probProfit
}

// PayoffStep is the PnL curve of the position at one intermediate date.
type PayoffStep struct {
	Date time.Time `json:"date"`
	PnLs []float64 `json:"pnls"`
}

// Payoff sampling: +/-5% of spot across 100 points, five time steps from
// entry to expiry, expiry day trading fraction 0.75.
const (
	payoffPoints    = 100
	payoffBandRatio = 0.05
	payoffSteps     = 5
	tradingDayShare = 0.75
)

// PayoffMatrix evaluates the position across a spot band at evenly spaced
// dates between entry and expiry, the last step pinned to the expiry itself.
// Used to show how the PnL profile decays toward the terminal payoff.
func PayoffMatrix(legs []Leg, spot float64, entry, expiry time.Time, sigma, r float64) (spotRange []float64, steps []PayoffStep) {
	spotRange = make([]float64, payoffPoints)
	lo := spot * (1 - payoffBandRatio)
	hi := spot * (1 + payoffBandRatio)
	step := (hi - lo) / float64(payoffPoints-1)
	for i := range spotRange {
		spotRange[i] = lo + float64(i)*step
	}

	totalDays := expiry.Sub(entry).Hours() / 24
	if totalDays < 1 {
		totalDays = 1
	}

	for i := 0; i < payoffSteps; i++ {
		d := entry.AddDate(0, 0, int(totalDays*float64(i)/float64(payoffSteps-1)))
		if i == payoffSteps-1 {
			d = expiry
		}

		remaining := expiry.Sub(d).Hours() / 24
		T := math.Max(remaining*tradingDayShare/365, 1e-6)

		pnls := make([]float64, payoffPoints)
		for j, s := range spotRange {
			pnls[j] = PnL(s, legs, T, sigma, r)
		}
		steps = append(steps, PayoffStep{Date: d, PnLs: pnls})
	}
	return spotRange, steps
}
