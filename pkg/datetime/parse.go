// Package datetime provides month and quarter helpers for index lookups and
// validity windows.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/hitas-engine/pkg/constants"
)

const (
	// DateTimeLayout is the month format used for index months.
	DateTimeLayout = constants.DateTimeLayout

	// DateLayout is the day format used for dates.
	DateLayout = constants.DateLayout
)

// Month is a calendar month, the granularity of every index series.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month the given time falls in.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "2006-01" formatted month.
func ParseMonth(value string) (Month, error) {
	t, err := time.Parse(DateTimeLayout, value)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", value, err)
	}
	return MonthOf(t), nil
}

// MustParseMonth parses a month and panics on error.
// This is intended for use in tests where the month string is known to be valid.
func MustParseMonth(value string) Month {
	m, err := ParseMonth(value)
	if err != nil {
		panic(err)
	}
	return m
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses a "2006-01-02" formatted date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// MustParseDate parses a "2006-01-02" formatted date and panics on error.
func MustParseDate(dateStr string) time.Time {
	return MustParseTime(DateLayout, dateStr)
}

// String formats the month as "2006-01".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// FirstDay returns midnight UTC of the first day of the month.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC of the last day of the month.
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

// AddMonths returns the month offset by the given number of months.
func (m Month) AddMonths(months int) Month {
	return MonthOf(m.FirstDay().AddDate(0, months, 0))
}

// Before reports whether m is strictly before other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// MonthsUntil returns the number of whole months from m to other. The result
// is negative when other is before m.
func (m Month) MonthsUntil(other Month) int {
	return (other.Year-m.Year)*constants.MonthsPerYear + int(other.Month) - int(m.Month)
}

// Quarter returns the calendar quarter the month falls in.
func (m Month) Quarter() Quarter {
	return Quarter{Year: m.Year, Number: (int(m.Month)-1)/constants.MonthsPerQuarter + 1}
}

// Quarter is a calendar quarter, e.g. 2023Q1.
type Quarter struct {
	Year   int
	Number int
}

// ParseQuarter parses a quarter in "2023Q1" form.
func ParseQuarter(value string) (Quarter, error) {
	var q Quarter
	if _, err := fmt.Sscanf(value, "%4dQ%1d", &q.Year, &q.Number); err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: %w", value, err)
	}
	if q.Number < 1 || q.Number > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: number must be between 1 and 4", value)
	}
	return q, nil
}

// String formats the quarter as "2023Q1".
func (q Quarter) String() string {
	return fmt.Sprintf("%04dQ%d", q.Year, q.Number)
}

// MarshalText implements encoding.TextMarshaler.
func (q Quarter) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quarter) UnmarshalText(text []byte) error {
	parsed, err := ParseQuarter(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// FirstMonth returns the first month of the quarter.
func (q Quarter) FirstMonth() Month {
	return Month{Year: q.Year, Month: time.Month((q.Number-1)*constants.MonthsPerQuarter + 1)}
}

// LastMonth returns the last month of the quarter.
func (q Quarter) LastMonth() Month {
	return q.FirstMonth().AddMonths(constants.MonthsPerQuarter - 1)
}

// Previous returns the quarter before q.
func (q Quarter) Previous() Quarter {
	return q.FirstMonth().AddMonths(-constants.MonthsPerQuarter).Quarter()
}

// PrecedingQuarters returns the n quarters before q, oldest first.
func (q Quarter) PrecedingQuarters(n int) []Quarter {
	quarters := make([]Quarter, n)
	current := q
	for i := n - 1; i >= 0; i-- {
		current = current.Previous()
		quarters[i] = current
	}
	return quarters
}

// Contains reports whether the date falls in the quarter.
func (q Quarter) Contains(t time.Time) bool {
	return MonthOf(t).Quarter() == q
}

// AddMonthsClamped adds months to a date, clamping the day to the last day of
// the target month instead of overflowing into the next one.
func AddMonthsClamped(t time.Time, months int) time.Time {
	target := MonthOf(t).AddMonths(months)
	day := t.Day()
	if last := target.LastDay().Day(); day > last {
		day = last
	}
	return time.Date(target.Year, target.Month, day, 0, 0, 0, 0, time.UTC)
}

// DateBeforeDate returns true if first is strictly before second, comparing
// calendar days only.
func DateBeforeDate(first, second time.Time) bool {
	return Truncate(first).Before(Truncate(second))
}

// Truncate drops the clock part of a date.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
