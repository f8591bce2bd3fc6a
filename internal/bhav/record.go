// Package bhav defines the canonical contract record extracted from an NSE
// F&O bhavcopy snapshot and the normalization step that produces it.
//
// A bhavcopy arrives as loosely-typed rows whose column names changed when
// NSE moved to the UDiFF format (TckrSymb vs SYMBOL, XpryDt vs EXPIRY_DT,
// and so on). Everything downstream works on ContractRecord, so column
// aliasing, date parsing and numeric validation happen exactly once, here.
package bhav

import "time"

// Instrument identifies the contract class of a bhavcopy row.
type Instrument string

const (
	OptIdx Instrument = "OPTIDX" // index option
	FutIdx Instrument = "FUTIDX" // index future
	OptStk Instrument = "OPTSTK" // stock option
	FutStk Instrument = "FUTSTK" // stock future
)

// OptionType is the option side of a contract. Futures carry NoOption.
type OptionType string

const (
	Call     OptionType = "CE"
	Put      OptionType = "PE"
	NoOption OptionType = ""
)

// ContractRecord is one normalized bhavcopy row. Records are immutable
// after normalization: every field is either valid or the row was dropped.
type ContractRecord struct {
	Symbol       string
	Instrument   Instrument
	Expiry       time.Time // always a parsed calendar date, never a raw string
	Strike       float64   // required for options, zero and ignored for futures
	OptionType   OptionType
	ClosePrice   float64 // settlement/close, used as premium or futures spot proxy
	OpenInterest int64
	TradeDate    time.Time // snapshot trade date, zero when the column is absent
}

// IsOption reports whether the record is an option contract.
func (r ContractRecord) IsOption() bool {
	return r.Instrument == OptIdx || r.Instrument == OptStk
}

// IsFuture reports whether the record is a futures contract.
func (r ContractRecord) IsFuture() bool {
	return r.Instrument == FutIdx || r.Instrument == FutStk
}
