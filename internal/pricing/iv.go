package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
)

// Typed errors for the solver. Only structurally impossible inputs are
// errors; a market price with no consistent volatility is reported through
// VolatilityResult.Converged instead.
var (
	// ErrInvalidInput means a non-positive time-to-expiry, spot or strike
	// reached the solver. No iteration is attempted.
	ErrInvalidInput = errors.New("invalid solver input")

	// ErrIncompleteVolatilityData means one side of an ATM pair failed the
	// arbitrage check or did not converge, so the two sides cannot be
	// averaged into an ATM figure.
	ErrIncompleteVolatilityData = errors.New("incomplete volatility data")
)

// Solver constants. The price(sigma) function is strictly increasing in
// sigma, which makes a bracketed search sufficient; Newton steps are only an
// acceleration and always fall back inside the bracket.
const (
	sigmaLow      = 1e-4 // lower bracket edge
	sigmaHigh     = 5.0  // 500% annualized vol ceiling before expansion
	priceTol      = 1e-4 // absolute tolerance in premium units
	bracketTol    = 1e-6 // bracket width at which sigma is pinned down
	maxIterations = 100
	maxExpansions = 10 // upward bracket expansions before giving up
	minVega       = 1e-8
)

// VolatilityResult is the outcome of one implied-volatility inversion.
type VolatilityResult struct {
	ImpliedVol float64 `json:"implied_vol"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

// ATMVolatility holds both sides of an ATM inversion and their mean.
type ATMVolatility struct {
	CallSide VolatilityResult `json:"call_side"`
	PutSide  VolatilityResult `json:"put_side"`
	Mean     float64          `json:"mean"`
}

// ImpliedVol recovers the volatility sigma at which the theoretical price
// equals the observed premium.
//
// Parameters:
//   - premium: observed option premium
//   - S: spot price of the underlying
//   - K: strike price
//   - T: time to expiry in years
//   - r: continuously-compounded risk-free rate
//   - side: bhav.Call or bhav.Put
//
// Behavior:
//   - premiums outside the no-arbitrage band return Converged=false with
//     ImpliedVol=0 immediately, since no volatility reproduces them
//   - the search brackets sigma in [1e-4, 5.0], expanding the ceiling when
//     the observed premium exceeds price(5.0)
//   - each step tries a Newton update from the bracket midpoint and falls
//     back to bisection when the step leaves the bracket or vega vanishes
//   - iteration stops when the price error is within tolerance or the
//     bracket has collapsed; hitting the iteration cap reports the best
//     sigma found with Converged=false
func ImpliedVol(premium, S, K, T, r float64, side bhav.OptionType) (VolatilityResult, error) {
	if T <= 0 || S <= 0 || K <= 0 {
		return VolatilityResult{}, fmt.Errorf("%w: S=%.4f K=%.4f T=%.6f", ErrInvalidInput, S, K, T)
	}

	// No-arbitrage band: intrinsic value below, spot (call) or strike (put)
	// above. Prices outside it are inconsistent with any sigma.
	lowerBound := Intrinsic(side, S, K)
	upperBound := S
	if side == bhav.Put {
		upperBound = K
	}
	if premium < lowerBound || premium > upperBound {
		return VolatilityResult{ImpliedVol: 0, Converged: false}, nil
	}

	lo, hi := sigmaLow, sigmaHigh
	for i := 0; i < maxExpansions && Price(side, S, K, T, r, hi) < premium; i++ {
		hi *= 2
	}

	var (
		bestSigma = lo
		bestErr   = math.Inf(1)
	)

	for iter := 1; iter <= maxIterations; iter++ {
		sigma := 0.5 * (lo + hi)

		// Newton acceleration from the midpoint, kept only when the step
		// stays strictly inside the current bracket.
		if v := Vega(S, K, T, r, sigma); v > minVega {
			step := sigma - (Price(side, S, K, T, r, sigma)-premium)/v
			if step > lo && step < hi {
				sigma = step
			}
		}

		p := Price(side, S, K, T, r, sigma)
		diff := p - premium

		if e := math.Abs(diff); e < bestErr {
			bestErr, bestSigma = e, sigma
		}

		if math.Abs(diff) < priceTol {
			return VolatilityResult{ImpliedVol: sigma, Converged: true, Iterations: iter}, nil
		}

		if diff < 0 {
			lo = sigma
		} else {
			hi = sigma
		}

		if hi-lo < bracketTol {
			return VolatilityResult{ImpliedVol: bestSigma, Converged: true, Iterations: iter}, nil
		}
	}

	return VolatilityResult{ImpliedVol: bestSigma, Converged: false, Iterations: maxIterations}, nil
}

// ATMImpliedVol inverts both sides of an ATM strike and averages them.
// The ATM figure only exists when both inversions converge: averaging one
// valid and one invalid number would report a fictitious volatility, so any
// one-sided failure returns ErrIncompleteVolatilityData.
func ATMImpliedVol(callPremium, putPremium, S, K, T, r float64) (ATMVolatility, error) {
	callRes, err := ImpliedVol(callPremium, S, K, T, r, bhav.Call)
	if err != nil {
		return ATMVolatility{}, err
	}
	putRes, err := ImpliedVol(putPremium, S, K, T, r, bhav.Put)
	if err != nil {
		return ATMVolatility{}, err
	}

	out := ATMVolatility{CallSide: callRes, PutSide: putRes}
	if !callRes.Converged || !putRes.Converged {
		return out, fmt.Errorf("%w: call converged=%t put converged=%t",
			ErrIncompleteVolatilityData, callRes.Converged, putRes.Converged)
	}
	out.Mean = (callRes.ImpliedVol + putRes.ImpliedVol) / 2
	return out, nil
}
