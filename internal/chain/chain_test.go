package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/bhav"
	"github.com/quantlabs-in/bhavcopy-analytics/internal/testutil"
)

func sampleRecords(t *testing.T) []bhav.ContractRecord {
	t.Helper()
	recs, rep := bhav.Normalize(testutil.SampleRows())
	if rep.Skipped != 0 {
		t.Fatalf("fixture rows must all normalize: %+v", rep)
	}
	return recs
}

func TestFilterExactMatch(t *testing.T) {
	recs := sampleRecords(t)

	opts := Filter(recs, "NIFTY", bhav.OptIdx, AnyExpiry)
	for _, r := range opts {
		if r.Symbol != "NIFTY" || r.Instrument != bhav.OptIdx {
			t.Fatalf("filter leaked record %+v", r)
		}
	}
	if len(opts) != 6 {
		t.Fatalf("expected 6 NIFTY option rows, got %d", len(opts))
	}

	// case-sensitive: lowercase must not match
	if got := Filter(recs, "nifty", bhav.OptIdx, AnyExpiry); len(got) != 0 {
		t.Fatalf("lowercase symbol matched %d records", len(got))
	}
}

func TestFilterIdempotent(t *testing.T) {
	recs := sampleRecords(t)
	pred := WeekdayExpiry(time.Thursday)

	once := Filter(recs, "NIFTY", bhav.OptIdx, pred)
	twice := Filter(once, "NIFTY", bhav.OptIdx, pred)

	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %d != %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("record %d changed between passes", i)
		}
	}
}

func TestFilterEmptyIsNotError(t *testing.T) {
	recs := sampleRecords(t)
	if got := Filter(recs, "SENSEX", bhav.OptIdx, AnyExpiry); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestResolveSpotNearestExpiry(t *testing.T) {
	recs := sampleRecords(t)

	spot, err := ResolveSpot(recs, "NIFTY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.Close(t, "spot", spot.Price, 25234.50, 1e-9)
	if !spot.SourceExpiry.Equal(testutil.SampleWeeklyExpiry) {
		t.Fatalf("source expiry = %v", spot.SourceExpiry)
	}
}

// The earlier expiry wins regardless of input order.
func TestResolveSpotOrderIndependent(t *testing.T) {
	recs := sampleRecords(t)

	reversed := make([]bhav.ContractRecord, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}

	a, err := ResolveSpot(recs, "NIFTY")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ResolveSpot(reversed, "NIFTY")
	if err != nil {
		t.Fatal(err)
	}
	if a.Price != b.Price || !a.SourceExpiry.Equal(b.SourceExpiry) {
		t.Fatalf("spot depends on input order: %+v vs %+v", a, b)
	}
}

func TestResolveSpotNoFutures(t *testing.T) {
	recs := sampleRecords(t)
	_, err := ResolveSpot(recs, "BANKNIFTY") // only an option row exists
	if !errors.Is(err, ErrNoFuturesData) {
		t.Fatalf("expected ErrNoFuturesData, got %v", err)
	}
}

func TestWeeklyOptionsNearestExpiry(t *testing.T) {
	recs := sampleRecords(t)

	weekly, err := WeeklyOptions(recs, "NIFTY", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(weekly) != 5 {
		t.Fatalf("expected 5 weekly contracts, got %d", len(weekly))
	}
	for _, r := range weekly {
		if !r.Expiry.Equal(testutil.SampleWeeklyExpiry) {
			t.Fatalf("non-weekly contract leaked: %+v", r)
		}
	}
}

func TestWeeklyOptionsLiquidityFloor(t *testing.T) {
	recs := sampleRecords(t)

	all, err := WeeklyOptions(recs, "NIFTY", 0)
	if err != nil {
		t.Fatal(err)
	}
	strict, err := WeeklyOptions(recs, "NIFTY", 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(strict) >= len(all) {
		t.Fatalf("floor did not drop contracts: %d vs %d", len(strict), len(all))
	}
	for _, r := range strict {
		if r.ClosePrice < 90 {
			t.Fatalf("illiquid contract kept: %+v", r)
		}
	}
}

func TestWeeklyOptionsMissingUnderlying(t *testing.T) {
	recs := sampleRecords(t)
	_, err := WeeklyOptions(recs, "RELIANCE", 0) // futures only in fixture
	if !errors.Is(err, ErrNoWeeklyOptions) {
		t.Fatalf("expected ErrNoWeeklyOptions, got %v", err)
	}
}

// 25100 has no put in the fixture, so the candidates are 25000 and 25050;
// 25050 is nearest to 25234.50.
func TestSelectATM(t *testing.T) {
	recs := sampleRecords(t)
	weekly, err := WeeklyOptions(recs, "NIFTY", 0)
	if err != nil {
		t.Fatal(err)
	}

	atm, err := SelectATM(weekly, testutil.SampleSpot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.Close(t, "atm strike", atm.Strike, 25050, 1e-9)
	testutil.Close(t, "atm call premium", atm.Call.ClosePrice, 230.00, 1e-9)
	testutil.Close(t, "atm put premium", atm.Put.ClosePrice, 100.10, 1e-9)
}

func TestSelectATMTieBreaksLower(t *testing.T) {
	mk := func(strike float64, side bhav.OptionType) bhav.ContractRecord {
		return bhav.ContractRecord{
			Symbol: "NIFTY", Instrument: bhav.OptIdx,
			Expiry: testutil.SampleWeeklyExpiry,
			Strike: strike, OptionType: side, ClosePrice: 100,
		}
	}
	// 25000 and 25100 are equidistant from 25050
	weekly := []bhav.ContractRecord{
		mk(25100, bhav.Call), mk(25100, bhav.Put),
		mk(25000, bhav.Call), mk(25000, bhav.Put),
	}

	atm, err := SelectATM(weekly, 25050)
	if err != nil {
		t.Fatal(err)
	}
	if atm.Strike != 25000 {
		t.Fatalf("tie must break toward the lower strike, got %.2f", atm.Strike)
	}
}

func TestSelectATMNoCompleteStrike(t *testing.T) {
	weekly := []bhav.ContractRecord{
		{Symbol: "NIFTY", Instrument: bhav.OptIdx, Strike: 25000, OptionType: bhav.Call, ClosePrice: 50},
		{Symbol: "NIFTY", Instrument: bhav.OptIdx, Strike: 25100, OptionType: bhav.Put, ClosePrice: 60},
	}
	_, err := SelectATM(weekly, 25050)
	if !errors.Is(err, ErrNoCompleteStrike) {
		t.Fatalf("expected ErrNoCompleteStrike, got %v", err)
	}
}

func TestResolvePremium(t *testing.T) {
	recs := sampleRecords(t)
	weekly, err := WeeklyOptions(recs, "NIFTY", 0)
	if err != nil {
		t.Fatal(err)
	}

	premium, err := ResolvePremium(weekly, 25050, bhav.Put)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.Close(t, "premium", premium, 100.10, 1e-9)

	_, err = ResolvePremium(weekly, 24000, bhav.Call)
	if !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}
}

func TestStrikesSortedDistinct(t *testing.T) {
	recs := sampleRecords(t)
	weekly, err := WeeklyOptions(recs, "NIFTY", 0)
	if err != nil {
		t.Fatal(err)
	}

	strikes := Strikes(weekly)
	want := []float64{25000, 25050, 25100}
	if len(strikes) != len(want) {
		t.Fatalf("strikes = %v", strikes)
	}
	for i := range want {
		if strikes[i] != want[i] {
			t.Fatalf("strikes = %v, want %v", strikes, want)
		}
	}
}
