// Package calendar knows which days the NSE trades and how much of a year
// separates a valuation date from an expiry.
//
// The holiday table is maintained by year. Dates missing from the table are
// treated as trading days, so an unmaintained year degrades to a plain
// weekday calendar instead of failing.
package calendar

import "time"

const dateLayout = "2006-01-02"

// Exception dates: market open despite appearing in the holiday table.
var exceptions = map[string]bool{
	"2026-02-01": true,
}

// NSE trading holidays by year.
var holidaysByYear = map[int]map[string]bool{
	2024: set(
		"2024-01-26", // Republic Day
		"2024-03-08", // Maha Shivaratri
		"2024-03-25", // Holi
		"2024-03-29", // Good Friday
		"2024-04-11", // Eid ul-Fitr
		"2024-04-17", // Ram Navami
		"2024-04-21", // Mahavir Jayanti
		"2024-05-23", // Buddha Purnima
		"2024-06-17", // Eid ul-Adha
		"2024-07-17", // Muharram
		"2024-08-15", // Independence Day
		"2024-08-26", // Janmashtami
		"2024-09-16", // Milad un-Nabi
		"2024-10-02", // Gandhi Jayanti
		"2024-10-12", // Dussehra
		"2024-10-31", // Diwali
		"2024-11-01", // Diwali (Day 2)
		"2024-11-15", // Guru Nanak Jayanti
		"2024-12-25", // Christmas
	),
	2025: set(
		"2025-01-26", // Republic Day
		"2025-02-28", // Maha Shivaratri
		"2025-03-14", // Holi
		"2025-03-30", // Eid ul-Fitr
		"2025-04-04", // Ram Navami
		"2025-04-14", // Ambedkar Jayanti
		"2025-04-18", // Good Friday
		"2025-04-21", // Mahavir Jayanti
		"2025-05-23", // Buddha Purnima
		"2025-06-07", // Eid ul-Adha
		"2025-07-07", // Muharram
		"2025-08-15", // Independence Day
		"2025-08-16", // Janmashtami
		"2025-09-16", // Milad un-Nabi
		"2025-10-02", // Gandhi Jayanti
		"2025-10-20", // Dussehra
		"2025-11-01", // Diwali
		"2025-11-05", // Diwali (Day 2)
		"2025-11-15", // Guru Nanak Jayanti
		"2025-12-25", // Christmas
	),
	2026: set(
		"2026-01-26", // Republic Day
		"2026-03-06", // Maha Shivaratri
		"2026-03-25", // Holi
		"2026-04-10", // Good Friday
		"2026-04-14", // Eid ul-Fitr
		"2026-04-21", // Ram Navami
		"2026-05-01", // Maharashtra Day
		"2026-08-15", // Independence Day
		"2026-10-02", // Gandhi Jayanti
		"2026-10-24", // Dussehra
		"2026-11-12", // Diwali
		"2026-12-25", // Christmas
	),
	2027: set(
		"2027-01-26", // Republic Day
		"2027-02-19", // Maha Shivaratri
		"2027-03-14", // Holi
		"2027-04-02", // Good Friday
		"2027-05-01", // Maharashtra Day
		"2027-05-14", // Buddha Purnima
		"2027-08-15", // Independence Day
		"2027-10-02", // Gandhi Jayanti
		"2027-10-15", // Dussehra
		"2027-11-01", // Diwali
		"2027-11-15", // Guru Nanak Jayanti
		"2027-12-25", // Christmas
	),
}

func set(dates ...string) map[string]bool {
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m
}

// Holidays returns the NSE holidays for a year, empty when the year is not
// in the table.
func Holidays(year int) map[string]bool {
	return holidaysByYear[year]
}

// IsMarketHoliday reports whether the market is closed on d: weekends and
// listed holidays, minus the exception dates.
func IsMarketHoliday(d time.Time) bool {
	key := d.Format(dateLayout)
	if exceptions[key] {
		return false
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	return holidaysByYear[d.Year()][key]
}

// PreviousWorkingDay returns the last trading day strictly before d.
func PreviousWorkingDay(d time.Time) time.Time {
	prev := d.AddDate(0, 0, -1)
	for IsMarketHoliday(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// Day-weight fractions used by TimeToMaturity. A closed day still carries
// some variance (overnight and weekend moves), so it counts a quarter of a
// trading day; the expiry day itself contributes only its trading hours.
const (
	tradingDayWeight    = 1.0
	nonTradingDayWeight = 0.25
	expiryDayWeight     = 0.75
)

// TimeToMaturity computes the weighted time between a valuation date and an
// expiry as a fraction of a year. Full trading days count 1.0, weekends and
// holidays 0.25, and the expiry day 0.75. Returns 0 when the valuation date
// is on or after the expiry.
func TimeToMaturity(valuation, expiry time.Time) float64 {
	valuation = truncate(valuation)
	expiry = truncate(expiry)
	if !valuation.Before(expiry) {
		return 0
	}

	days := 0.0
	for d := valuation.AddDate(0, 0, 1); d.Before(expiry); d = d.AddDate(0, 0, 1) {
		if IsMarketHoliday(d) {
			days += nonTradingDayWeight
		} else {
			days += tradingDayWeight
		}
	}
	return (days + expiryDayWeight) / 365
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
