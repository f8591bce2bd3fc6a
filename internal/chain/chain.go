// Package chain selects contract subsets out of a normalized bhavcopy
// snapshot: the weekly option chain for an underlying, the futures-implied
// spot price, the at-the-money strike pair, and individual leg premiums.
//
// All functions are pure over their inputs. Output order preserves input
// order; nothing here sorts the caller's slice.
package chain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
)

// Typed errors allow callers and tests to detect failure categories
// without string matching. Each one maps a distinct upstream data gap.
var (
	// ErrNoFuturesData means the snapshot has no futures row for the
	// underlying, so no spot proxy can be derived.
	ErrNoFuturesData = errors.New("no futures data for underlying")

	// ErrNoWeeklyOptions means option extraction produced an empty chain.
	ErrNoWeeklyOptions = errors.New("no weekly options for underlying")

	// ErrNoCompleteStrike means no strike in the chain has both a call
	// and a put, so no ATM pair exists.
	ErrNoCompleteStrike = errors.New("no strike with both call and put")

	// ErrContractNotFound means a requested (strike, side) has no row in
	// the chain. Fatal to that leg only, never to the whole run.
	ErrContractNotFound = errors.New("contract not found")
)

// DefaultWeeklyExpiryDay is the NSE weekly index expiry weekday.
const DefaultWeeklyExpiryDay = time.Wednesday

// SpotQuote is the futures-implied spot proxy for one analysis run.
type SpotQuote struct {
	Price        float64   // close of the nearest-expiry future
	SourceExpiry time.Time // expiry of the future that supplied the price
}

// ATMPair is the strike nearest the spot that has both option sides.
type ATMPair struct {
	Strike float64
	Call   bhav.ContractRecord
	Put    bhav.ContractRecord
}

// ExpiryPredicate selects expiries during filtering.
type ExpiryPredicate func(time.Time) bool

// AnyExpiry accepts every expiry.
func AnyExpiry(time.Time) bool { return true }

// WeekdayExpiry accepts expiries falling on the given weekday, e.g. the
// Wednesday weekly cycle.
func WeekdayExpiry(day time.Weekday) ExpiryPredicate {
	return func(t time.Time) bool { return t.Weekday() == day }
}

// ExpiryOn accepts exactly one calendar date.
func ExpiryOn(date time.Time) ExpiryPredicate {
	return func(t time.Time) bool { return sameDate(t, date) }
}

// Filter selects records matching the underlying, instrument and expiry
// predicate. Matching on underlying and instrument is exact and
// case-sensitive. An empty result is not an error; callers decide whether
// emptiness is fatal.
func Filter(records []bhav.ContractRecord, underlying string, instrument bhav.Instrument, expiryOK ExpiryPredicate) []bhav.ContractRecord {
	if expiryOK == nil {
		expiryOK = AnyExpiry
	}
	out := make([]bhav.ContractRecord, 0, len(records))
	for _, r := range records {
		if r.Symbol != underlying || r.Instrument != instrument {
			continue
		}
		if !expiryOK(r.Expiry) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ResolveSpot derives the spot proxy from the nearest-expiry future of the
// underlying. Index and stock futures both qualify. When several futures
// share the minimum expiry the first in input order wins.
func ResolveSpot(records []bhav.ContractRecord, underlying string) (SpotQuote, error) {
	var best *bhav.ContractRecord
	for i := range records {
		r := &records[i]
		if r.Symbol != underlying || !r.IsFuture() {
			continue
		}
		if best == nil || r.Expiry.Before(best.Expiry) {
			best = r
		}
	}
	if best == nil {
		return SpotQuote{}, fmt.Errorf("%w: %s", ErrNoFuturesData, underlying)
	}
	return SpotQuote{Price: best.ClosePrice, SourceExpiry: best.Expiry}, nil
}

// WeeklyOptions extracts the weekly option chain for the underlying: all
// option rows sharing the nearest expiry in the snapshot. Contracts closing
// below minClose are dropped as illiquid (pass 0 to keep everything).
// Input order is preserved within the chain.
func WeeklyOptions(records []bhav.ContractRecord, underlying string, minClose float64) ([]bhav.ContractRecord, error) {
	var nearest time.Time
	found := false
	for _, r := range records {
		if r.Symbol != underlying || !r.IsOption() {
			continue
		}
		if !found || r.Expiry.Before(nearest) {
			nearest = r.Expiry
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNoWeeklyOptions, underlying)
	}

	var out []bhav.ContractRecord
	for _, r := range records {
		if r.Symbol != underlying || !r.IsOption() || !sameDate(r.Expiry, nearest) {
			continue
		}
		if r.ClosePrice < minClose {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s (all contracts below min close %.2f)", ErrNoWeeklyOptions, underlying, minClose)
	}
	return out, nil
}

// SelectATM picks the strike nearest the spot among strikes that carry both
// a call and a put. Equidistant strikes break toward the lower strike so
// selection is deterministic regardless of input order.
func SelectATM(weekly []bhav.ContractRecord, spot float64) (ATMPair, error) {
	type pair struct {
		call *bhav.ContractRecord
		put  *bhav.ContractRecord
	}
	byStrike := make(map[float64]*pair)
	for i := range weekly {
		r := &weekly[i]
		p := byStrike[r.Strike]
		if p == nil {
			p = &pair{}
			byStrike[r.Strike] = p
		}
		switch r.OptionType {
		case bhav.Call:
			if p.call == nil {
				p.call = r
			}
		case bhav.Put:
			if p.put == nil {
				p.put = r
			}
		}
	}

	var (
		bestStrike float64
		bestDist   = math.Inf(1)
		bestPair   *pair
	)
	for strike, p := range byStrike {
		if p.call == nil || p.put == nil {
			continue
		}
		dist := math.Abs(strike - spot)
		if dist < bestDist || (dist == bestDist && strike < bestStrike) {
			bestStrike, bestDist, bestPair = strike, dist, p
		}
	}
	if bestPair == nil {
		return ATMPair{}, ErrNoCompleteStrike
	}
	return ATMPair{Strike: bestStrike, Call: *bestPair.call, Put: *bestPair.put}, nil
}

// ResolvePremium looks up the close price of the exact (strike, side)
// contract. The match is numeric equality, never nearest: a missing leg must
// surface as ErrContractNotFound rather than default to zero, because a
// silent zero premium would corrupt downstream PnL arithmetic.
func ResolvePremium(weekly []bhav.ContractRecord, strike float64, side bhav.OptionType) (float64, error) {
	for _, r := range weekly {
		if r.Strike == strike && r.OptionType == side {
			return r.ClosePrice, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %.2f", ErrContractNotFound, side, strike)
}

// Strikes returns the distinct strikes present in the chain, ascending.
func Strikes(weekly []bhav.ContractRecord) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range weekly {
		if r.Strike > 0 && !seen[r.Strike] {
			seen[r.Strike] = true
			out = append(out, r.Strike)
		}
	}
	sort.Float64s(out)
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
