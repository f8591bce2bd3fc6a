package bhav

import (
	"strconv"
	"strings"
	"time"
)

// Row is one raw bhavcopy row: column name to raw cell text.
type Row map[string]string

// Column aliases, canonical UDiFF name first, legacy bhavcopy name after.
var (
	symbolCols     = []string{"TckrSymb", "SYMBOL"}
	instrumentCols = []string{"FinInstrmTp", "INSTRUMENT"}
	expiryCols     = []string{"XpryDt", "EXPIRY_DT"}
	strikeCols     = []string{"StrkPric", "STRIKE_PR"}
	optionTypeCols = []string{"OptnTp", "OPTION_TYP"}
	closeCols      = []string{"ClsPric", "CLOSE"}
	openIntCols    = []string{"OpnIntrst", "OPEN_INT"}
	tradeDateCols  = []string{"TradDt", "BizDt", "TIMESTAMP"}
)

// UDiFF instrument codes mapped to the legacy enumeration.
var instrumentCodes = map[string]Instrument{
	"IDO":    OptIdx,
	"STO":    OptStk,
	"IDF":    FutIdx,
	"STF":    FutStk,
	"OPTIDX": OptIdx,
	"OPTSTK": OptStk,
	"FUTIDX": FutIdx,
	"FUTSTK": FutStk,
}

// Accepted textual date forms. Month abbreviations match case-insensitively,
// so 29-JAN-2026 parses under the second layout.
var dateLayouts = []string{"2006-01-02", "02-Jan-2006"}

// NormalizeReport accumulates per-row skip counts for one batch.
// A skipped row is never an error: the batch always succeeds and the caller
// decides whether the skip ratio is acceptable.
type NormalizeReport struct {
	Rows    int            // rows seen
	Kept    int            // rows that produced a ContractRecord
	Skipped int            // rows dropped
	Reasons map[string]int // skip reason -> count
}

func (rep *NormalizeReport) skip(reason string) {
	rep.Skipped++
	if rep.Reasons == nil {
		rep.Reasons = make(map[string]int)
	}
	rep.Reasons[reason]++
}

// Normalize converts raw bhavcopy rows into ContractRecords.
//
// Rules:
//   - a canonical field may be satisfied by any of its column aliases
//   - expiry accepts ISO (2026-01-29) and DD-MON-YYYY (29-JAN-2026) forms
//   - options must carry a CE/PE side and a positive strike
//   - futures always normalize to NoOption with a zero strike
//   - any unparseable date or numeric drops that row only, with a counted
//     reason, never failing the batch
//
// Normalize is pure: no I/O, no logging, no shared state.
func Normalize(rows []Row) ([]ContractRecord, NormalizeReport) {
	out := make([]ContractRecord, 0, len(rows))
	var rep NormalizeReport

	for _, row := range rows {
		rep.Rows++

		rec, reason := normalizeRow(row)
		if reason != "" {
			rep.skip(reason)
			continue
		}
		out = append(out, rec)
		rep.Kept++
	}

	return out, rep
}

// normalizeRow maps one raw row to a record, returning a non-empty skip
// reason when the row is invalid.
func normalizeRow(row Row) (ContractRecord, string) {
	var rec ContractRecord

	sym, ok := lookup(row, symbolCols)
	if !ok {
		return rec, "missing_symbol"
	}
	rec.Symbol = sym

	code, ok := lookup(row, instrumentCols)
	if !ok {
		return rec, "missing_instrument"
	}
	inst, ok := instrumentCodes[strings.ToUpper(code)]
	if !ok {
		return rec, "unknown_instrument"
	}
	rec.Instrument = inst

	raw, ok := lookup(row, expiryCols)
	if !ok {
		return rec, "missing_expiry"
	}
	expiry, err := ParseDate(raw)
	if err != nil {
		return rec, "bad_expiry"
	}
	rec.Expiry = expiry

	cls, ok := lookup(row, closeCols)
	if !ok {
		return rec, "missing_close"
	}
	price, err := parsePrice(cls)
	if err != nil || price < 0 {
		return rec, "bad_close"
	}
	rec.ClosePrice = price

	if oi, ok := lookup(row, openIntCols); ok {
		v, err := parsePrice(oi)
		if err != nil || v < 0 {
			return rec, "bad_open_interest"
		}
		rec.OpenInterest = int64(v)
	}

	if td, ok := lookup(row, tradeDateCols); ok {
		d, err := ParseDate(td)
		if err != nil {
			return rec, "bad_trade_date"
		}
		rec.TradeDate = d
	}

	if rec.IsOption() {
		side, ok := lookup(row, optionTypeCols)
		if !ok {
			return rec, "missing_option_type"
		}
		switch OptionType(strings.ToUpper(side)) {
		case Call:
			rec.OptionType = Call
		case Put:
			rec.OptionType = Put
		default:
			return rec, "bad_option_type"
		}

		str, ok := lookup(row, strikeCols)
		if !ok {
			return rec, "missing_strike"
		}
		strike, err := parsePrice(str)
		if err != nil || strike <= 0 {
			return rec, "bad_strike"
		}
		rec.Strike = strike
	}
	// futures keep NoOption and a zero strike regardless of what the
	// OptnTp column holds (NSE writes XX there)

	return rec, ""
}

// lookup returns the first non-empty cell among the column aliases.
func lookup(row Row, cols []string) (string, bool) {
	for _, c := range cols {
		if v, ok := row[c]; ok {
			v = strings.TrimSpace(v)
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// ParseDate parses the accepted bhavcopy date forms into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parsePrice parses a numeric cell. Thousands separators occasionally show
// up in hand-edited CSV exports, so commas are stripped before parsing.
func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
