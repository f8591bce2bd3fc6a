// Package pricing implements the standard lognormal (Black-Scholes) option
// model: theoretical prices, vega, delta-to-strike inversion, and the
// implied-volatility solver in iv.go.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
)

// stdNormal is the standard normal distribution used for all CDF/PDF and
// quantile evaluations.
var stdNormal = distuv.UnitNormal

// Price calculates the theoretical price of a European option.
//
// Parameters:
//   - side: bhav.Call or bhav.Put
//   - S: spot price of the underlying
//   - K: strike price
//   - T: time to expiry in years
//   - r: continuously-compounded risk-free rate (annual)
//   - sigma: volatility (annual, as a decimal)
//
// When time to expiry or volatility is zero or negative the option has no
// time value and the intrinsic value is returned.
func Price(side bhav.OptionType, S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		return Intrinsic(side, S, K)
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)

	if side == bhav.Call {
		return S*stdNormal.CDF(d1) - K*math.Exp(-r*T)*stdNormal.CDF(d2)
	}
	return K*math.Exp(-r*T)*stdNormal.CDF(-d2) - S*stdNormal.CDF(-d1)
}

// Intrinsic returns the exercise value of an option at spot S.
func Intrinsic(side bhav.OptionType, S, K float64) float64 {
	if side == bhav.Call {
		return math.Max(0, S-K)
	}
	return math.Max(0, K-S)
}

// Vega calculates the sensitivity of the option price to volatility.
// Vega is identical for calls and puts at the same strike. Returns 0 when
// T or sigma is non-positive.
func Vega(S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		return 0
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	return S * stdNormal.Prob(d1) * math.Sqrt(T)
}

// StrikeFromDelta inverts the call-delta relation N(d1) = delta to find the
// strike with the given delta. Put deltas are passed as their absolute value
// with isCall=false.
func StrikeFromDelta(S, delta, r, sigma, T float64, isCall bool) float64 {
	if !isCall {
		delta = 1 - delta
	}
	d1 := stdNormal.Quantile(delta)
	return S * math.Exp((r+0.5*sigma*sigma)*T-d1*sigma*math.Sqrt(T))
}
