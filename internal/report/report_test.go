package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/analyze"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/strategy"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/testutil"
)

func sampleResult() *analyze.Result {
	return &analyze.Result{
		Underlying:    "NIFTY",
		ValuationDate: testutil.SampleValuationDate,
		SnapshotDate:  testutil.SampleValuationDate,
		WeeklyExpiry:  testutil.SampleWeeklyExpiry,
		ATMStrike:     25050,
		ATMIVValid:    true,
		Legs: []strategy.Leg{
			{
				Spec:    strategy.LegSpec{OptionType: bhav.Put, Side: strategy.Sell, Qty: 2},
				Strike:  25050,
				Premium: 100.10,
			},
		},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()

	runID, err := WriteJSON(sampleResult(), dir)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	name := "analysis_20260122_" + runID[:8] + ".json"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.RunID != runID {
		t.Fatalf("run id %q, want %q", env.RunID, runID)
	}
	if env.Result.ATMStrike != 25050 || env.Result.Underlying != "NIFTY" {
		t.Fatalf("result did not round trip: %+v", env.Result)
	}
}

// Two writes of the same result must not collide.
func TestWriteJSONDistinctRuns(t *testing.T) {
	dir := t.TempDir()

	a, err := WriteJSON(sampleResult(), dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := WriteJSON(sampleResult(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("run ids must differ")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files, got %d", len(entries))
	}
}

func TestWriteLegsCSV(t *testing.T) {
	dir := t.TempDir()

	if err := WriteLegsCSV(sampleResult(), dir); err != nil {
		t.Fatalf("WriteLegsCSV: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "legs_20260122.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 leg, got %d rows", len(rows))
	}
	if rows[0][0] != "side" || rows[0][4] != "premium" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	want := []string{"SELL", "PE", "25050.00", "2", "100.10"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Fatalf("leg row %v, want %v", rows[1], want)
		}
	}
}
