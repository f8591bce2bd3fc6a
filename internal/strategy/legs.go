// Package strategy turns user-specified option legs into priced positions
// and evaluates the combined position's PnL profile.
//
// Responsibilities:
//   - Resolve strike rules (ATM, ATM offsets, ABS, leg expressions)
//   - Attach market premiums from the weekly option chain
//   - Compute PnL curves, expected PnL and probability of profit
//
// Design notes:
//   - Premium attachment is per-leg fault isolated: a leg with no matching
//     contract is reported and skipped, it never zeroes out silently
//   - All computations are deterministic given the chain snapshot
package strategy

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/chain"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/logger"
)

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	ErrInvalidStrikeRule  = errors.New("invalid strike rule")
	ErrLegIndexOutOfRange = errors.New("leg index out of range")
	ErrNoValidLegs        = errors.New("no valid option legs")
)

// Side of a position.
const (
	Buy  = "BUY"
	Sell = "SELL"
)

// DefaultStrikeInterval is the NIFTY weekly strike spacing, used when the
// config does not override it.
const DefaultStrikeInterval = 50.0

// LegSpec defines a single option leg as provided by the user or strategy
// JSON. It represents intent, not resolved market values: either Strike or
// StrikeRule must be set.
type LegSpec struct {
	Strike     float64         `json:"strike,omitempty"`      // explicit strike
	StrikeRule string          `json:"strike_rule,omitempty"` // ATM, ATM:+50, ATM:-1%, ABS:25300, {LEG1.STRIKE}+100
	OptionType bhav.OptionType `json:"option_type"`           // CE or PE
	Side       string          `json:"side,omitempty"`        // BUY or SELL, defaults to BUY
	Qty        int             `json:"qty,omitempty"`         // defaults to 1
}

// Leg is a fully resolved position: concrete strike and market premium.
type Leg struct {
	Spec    LegSpec `json:"spec"`
	Strike  float64 `json:"strike"`
	Premium float64 `json:"premium"`
}

// SkippedLeg records a leg that could not be priced and why.
type SkippedLeg struct {
	Spec LegSpec `json:"spec"`
	Err  error   `json:"-"`
}

// ResolveLegs resolves strikes and attaches premiums for every leg against
// the weekly chain. Legs whose contract is missing from the chain are
// isolated into the skipped list; the call only fails when no leg at all
// could be priced, or when a strike rule itself is malformed.
func ResolveLegs(specs []LegSpec, weekly []bhav.ContractRecord, spot, interval float64) ([]Leg, []SkippedLeg, error) {
	if interval <= 0 {
		interval = DefaultStrikeInterval
	}

	var legs []Leg
	var skipped []SkippedLeg

	for i, spec := range specs {
		if spec.Side == "" {
			spec.Side = Buy
		}
		if spec.Qty == 0 {
			spec.Qty = 1
		}

		strike, err := resolveStrike(spec, spot, interval, legs)
		if err != nil {
			return nil, nil, fmt.Errorf("leg %d: %w", i+1, err)
		}

		premium, err := chain.ResolvePremium(weekly, strike, spec.OptionType)
		if err != nil {
			logger.Errorf("event=leg_skipped leg=%d type=%s strike=%.2f err=%v", i+1, spec.OptionType, strike, err)
			skipped = append(skipped, SkippedLeg{Spec: spec, Err: err})
			continue
		}

		logger.Infof("event=leg_resolved leg=%d side=%s type=%s strike=%.2f premium=%.2f qty=%d",
			i+1, spec.Side, spec.OptionType, strike, premium, spec.Qty)

		legs = append(legs, Leg{Spec: spec, Strike: strike, Premium: premium})
	}

	if len(legs) == 0 {
		return nil, skipped, ErrNoValidLegs
	}
	return legs, skipped, nil
}

var legExprRe = regexp.MustCompile(`\{LEG(\d+)\.(STRIKE|PREMIUM)\}`)

// resolveStrike converts a leg spec into a concrete strike price.
//
// Supported forms:
//   - explicit Strike field
//   - ATM, ATM:+50, ATM:-1%
//   - ABS:25300
//   - expressions over prior legs: {LEG1.STRIKE}+100
//
// ATM-relative strikes snap to the strike interval grid; explicit and
// expression strikes are taken verbatim.
func resolveStrike(spec LegSpec, spot, interval float64, prior []Leg) (float64, error) {
	if spec.Strike > 0 {
		return spec.Strike, nil
	}

	rule := strings.TrimSpace(strings.ToUpper(spec.StrikeRule))
	logger.Debugf("event=resolve_strike rule=%s spot=%.2f", rule, spot)

	switch {
	case rule == "ATM":
		return snap(spot, interval), nil

	case strings.HasPrefix(rule, "ATM:"):
		target, err := applyOffset(rule[len("ATM:"):], spot)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, spec.StrikeRule)
		}
		return snap(target, interval), nil

	case strings.HasPrefix(rule, "ABS:"):
		abs, err := strconv.ParseFloat(rule[len("ABS:"):], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeRule, spec.StrikeRule)
		}
		return abs, nil

	case strings.Contains(rule, "{LEG"):
		return evaluateLegExpression(rule, prior)
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidStrikeRule, spec.StrikeRule)
}

// applyOffset applies an absolute (+50) or percentage (-1%) offset to spot.
func applyOffset(offset string, spot float64) (float64, error) {
	if strings.HasSuffix(offset, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(offset, "%"), 64)
		if err != nil {
			return 0, err
		}
		return spot + spot*pct/100, nil
	}
	abs, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return 0, err
	}
	return spot + abs, nil
}

// evaluateLegExpression evaluates expressions referencing prior legs, e.g.
// {LEG1.STRIKE}+{LEG1.PREMIUM}.
func evaluateLegExpression(expr string, legs []Leg) (float64, error) {
	matches := legExprRe.FindAllStringSubmatch(expr, -1)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrikeRule, expr)
	}

	evalStr := expr
	for _, m := range matches {
		idx, _ := strconv.Atoi(m[1])
		idx-- // LEG1 is index 0
		if idx < 0 || idx >= len(legs) {
			return 0, fmt.Errorf("%w: LEG%s", ErrLegIndexOutOfRange, m[1])
		}

		value := legs[idx].Strike
		if m[2] == "PREMIUM" {
			value = legs[idx].Premium
		}
		evalStr = strings.Replace(evalStr, m[0], strconv.FormatFloat(value, 'f', -1, 64), 1)
	}

	evalExpr, err := govaluate.NewEvaluableExpression(evalStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidStrikeRule, expr, err)
	}
	result, err := evalExpr.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidStrikeRule, expr, err)
	}
	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q: non-numeric result", ErrInvalidStrikeRule, expr)
	}
	return f, nil
}

// snap rounds a price to the nearest strike on the interval grid.
func snap(price, interval float64) float64 {
	return math.Round(price/interval) * interval
}
