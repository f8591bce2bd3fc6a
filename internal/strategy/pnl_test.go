package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/testutil"
)

// With almost no time left the leg PnL collapses to intrinsic minus premium.
func TestLegPnLNearExpiry(t *testing.T) {
	leg := Leg{
		Spec:    LegSpec{OptionType: bhav.Call, Side: Buy, Qty: 1},
		Strike:  25000,
		Premium: 260,
	}

	got := LegPnL(25300, leg, 1e-9, 0.12, 0.065)
	testutil.Close(t, "long call pnl", got, 300-260, 1e-3)

	got = LegPnL(24900, leg, 1e-9, 0.12, 0.065)
	testutil.Close(t, "otm call pnl", got, -260, 1e-3)
}

func TestLegPnLSellNegatesAndScales(t *testing.T) {
	long := Leg{Spec: LegSpec{OptionType: bhav.Put, Side: Buy, Qty: 1}, Strike: 25050, Premium: 100.10}
	short := Leg{Spec: LegSpec{OptionType: bhav.Put, Side: Sell, Qty: 3}, Strike: 25050, Premium: 100.10}

	S, T, sigma, r := 25100.0, 5.0/365, 0.13, 0.065
	lp := LegPnL(S, long, T, sigma, r)
	sp := LegPnL(S, short, T, sigma, r)

	testutil.Close(t, "short vs long", sp, -3*lp, 1e-9)
}

func TestPnLSumsLegs(t *testing.T) {
	legs := []Leg{
		{Spec: LegSpec{OptionType: bhav.Call, Side: Sell, Qty: 1}, Strike: 25050, Premium: 230},
		{Spec: LegSpec{OptionType: bhav.Put, Side: Sell, Qty: 1}, Strike: 25050, Premium: 100.10},
	}

	S, T, sigma, r := 25234.50, 5.0/365, 0.13, 0.065
	want := LegPnL(S, legs[0], T, sigma, r) + LegPnL(S, legs[1], T, sigma, r)
	testutil.Close(t, "position pnl", PnL(S, legs, T, sigma, r), want, 1e-9)
}

func TestCurveShape(t *testing.T) {
	legs := []Leg{{Spec: LegSpec{OptionType: bhav.Call, Side: Buy, Qty: 1}, Strike: 25050, Premium: 230}}

	S0 := 25234.50
	spots, pnls := Curve(S0, legs, 5.0/365, 0.13, 0.065)

	if len(spots) != curvePoints || len(pnls) != curvePoints {
		t.Fatalf("curve length %d/%d, want %d", len(spots), len(pnls), curvePoints)
	}
	testutil.Close(t, "curve low", spots[0], curveLowRatio*S0, 1e-9)
	testutil.Close(t, "curve high", spots[len(spots)-1], curveHighRatio*S0, 1e-9)

	for i := 1; i < len(spots); i++ {
		if spots[i] <= spots[i-1] {
			t.Fatalf("spots not ascending at %d", i)
		}
		// A long call is monotone in the terminal spot.
		if pnls[i] < pnls[i-1]-1e-9 {
			t.Fatalf("long call pnl decreased at %d", i)
		}
	}
}

func TestExpectedMetrics(t *testing.T) {
	S0, T, sigma, r := 25234.50, 5.0/365, 0.13, 0.065
	legs := []Leg{
		{Spec: LegSpec{OptionType: bhav.Call, Side: Sell, Qty: 1}, Strike: 25050, Premium: 230},
		{Spec: LegSpec{OptionType: bhav.Put, Side: Sell, Qty: 1}, Strike: 25050, Premium: 100.10},
	}

	spots, pnls := Curve(S0, legs, 1e-9, sigma, r)
	expected, prob := ExpectedMetrics(spots, pnls, S0, sigma, T)

	if prob < 0 || prob > 1 {
		t.Fatalf("probability of profit %f out of range", prob)
	}
	if prob == 0 {
		t.Fatal("short straddle near its strike must have some profit probability")
	}
	if math.IsNaN(expected) || math.IsInf(expected, 0) {
		t.Fatalf("expected pnl is %f", expected)
	}
}

func TestExpectedMetricsDegenerateInput(t *testing.T) {
	e, p := ExpectedMetrics(nil, nil, 25000, 0.13, 5.0/365)
	if e != 0 || p != 0 {
		t.Fatalf("empty input should give zeros, got %f/%f", e, p)
	}
	e, p = ExpectedMetrics([]float64{1, 2}, []float64{1}, 25000, 0.13, 5.0/365)
	if e != 0 || p != 0 {
		t.Fatalf("mismatched input should give zeros, got %f/%f", e, p)
	}
}

func TestPayoffMatrix(t *testing.T) {
	legs := []Leg{{Spec: LegSpec{OptionType: bhav.Call, Side: Buy, Qty: 1}, Strike: 25050, Premium: 230}}

	entry := time.Date(2026, time.January, 22, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, time.January, 29, 0, 0, 0, 0, time.UTC)

	spotRange, steps := PayoffMatrix(legs, 25234.50, entry, expiry, 0.13, 0.065)

	if len(spotRange) != payoffPoints {
		t.Fatalf("spot range length %d, want %d", len(spotRange), payoffPoints)
	}
	if len(steps) != payoffSteps {
		t.Fatalf("got %d steps, want %d", len(steps), payoffSteps)
	}

	if !steps[0].Date.Equal(entry) {
		t.Fatalf("first step %s, want entry date", steps[0].Date.Format("2006-01-02"))
	}
	if !steps[len(steps)-1].Date.Equal(expiry) {
		t.Fatalf("last step %s, want expiry date", steps[len(steps)-1].Date.Format("2006-01-02"))
	}

	for _, step := range steps {
		if len(step.PnLs) != payoffPoints {
			t.Fatalf("step %s has %d points", step.Date.Format("2006-01-02"), len(step.PnLs))
		}
	}

	// The final step is the terminal payoff: intrinsic minus premium.
	last := steps[len(steps)-1].PnLs
	for j, s := range spotRange {
		want := math.Max(s-25050, 0) - 230
		if math.Abs(last[j]-want) > 1.0 {
			t.Fatalf("terminal payoff at spot %.2f: got %.2f, want %.2f", s, last[j], want)
		}
	}
}
