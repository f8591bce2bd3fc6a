// Package testutil holds shared test fixtures: a small bhavcopy snapshot
// with known spot, chain and premiums, plus tolerance helpers.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
)

// The sample snapshot: NIFTY trading on 2026-01-22 with the weekly expiry
// on 2026-01-29. The front future closes at 25234.50; the weekly chain has
// both sides at 25000 and 25050, and a call-only 25100.
var (
	SampleValuationDate = time.Date(2026, time.January, 22, 0, 0, 0, 0, time.UTC)
	SampleWeeklyExpiry  = time.Date(2026, time.January, 29, 0, 0, 0, 0, time.UTC)
	SampleSpot          = 25234.50
)

// SampleRows returns the raw snapshot rows. UDiFF and legacy column namings
// are mixed deliberately so fixtures exercise alias resolution; rows of
// other symbols and instruments are included as filter noise.
func SampleRows() []bhav.Row {
	return []bhav.Row{
		// front-month future: the spot proxy
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDF", "XpryDt": "2026-01-29",
			"OptnTp": "XX", "StrkPric": "0", "ClsPric": "25234.50",
			"OpnIntrst": "1450000", "TradDt": "2026-01-22",
		},
		// next-month future, must lose nearest-expiry selection
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDF", "XpryDt": "2026-02-26",
			"OptnTp": "XX", "StrkPric": "0", "ClsPric": "25310.00",
			"OpnIntrst": "820000", "TradDt": "2026-01-22",
		},
		// weekly chain, UDiFF naming
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-01-29",
			"OptnTp": "CE", "StrkPric": "25000", "ClsPric": "260.00",
			"OpnIntrst": "410000", "TradDt": "2026-01-22",
		},
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-01-29",
			"OptnTp": "PE", "StrkPric": "25000", "ClsPric": "85.00",
			"OpnIntrst": "530000", "TradDt": "2026-01-22",
		},
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-01-29",
			"OptnTp": "CE", "StrkPric": "25050", "ClsPric": "230.00",
			"OpnIntrst": "380000", "TradDt": "2026-01-22",
		},
		// legacy naming on purpose
		{
			"SYMBOL": "NIFTY", "INSTRUMENT": "OPTIDX", "EXPIRY_DT": "29-JAN-2026",
			"OPTION_TYP": "PE", "STRIKE_PR": "25050", "CLOSE": "100.10",
			"OPEN_INT": "615000", "TIMESTAMP": "22-JAN-2026",
		},
		// call without a matching put: incomplete strike
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-01-29",
			"OptnTp": "CE", "StrkPric": "25100", "ClsPric": "205.00",
			"OpnIntrst": "290000", "TradDt": "2026-01-22",
		},
		// next-week contract, excluded by nearest-expiry extraction
		{
			"TckrSymb": "NIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-02-05",
			"OptnTp": "CE", "StrkPric": "25050", "ClsPric": "310.00",
			"OpnIntrst": "120000", "TradDt": "2026-01-22",
		},
		// other symbol and stock instrument noise
		{
			"TckrSymb": "BANKNIFTY", "FinInstrmTp": "IDO", "XpryDt": "2026-01-29",
			"OptnTp": "CE", "StrkPric": "57000", "ClsPric": "410.00",
			"OpnIntrst": "98000", "TradDt": "2026-01-22",
		},
		{
			"TckrSymb": "RELIANCE", "FinInstrmTp": "STF", "XpryDt": "2026-01-29",
			"OptnTp": "XX", "StrkPric": "0", "ClsPric": "1420.55",
			"OpnIntrst": "66000", "TradDt": "2026-01-22",
		},
	}
}

// Close fails the test when got is not within tol of want.
func Close(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %v, want %v (tol %v)", name, got, want, tol)
	}
}
