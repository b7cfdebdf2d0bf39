package calendar

import (
	"fmt"
	"math"
	"time"
)

const (
	// roundingFactor sets the resolution (1e-9 day) used to cancel
	// floating-point drift before splitting day and time-of-day.
	roundingFactor = 1e9

	secondsPerDay = 86400

	// gregorianOffset is the day number of 0000-03-01 in this numbering.
	gregorianOffset = 1721119

	// unixEpochDay is the day number of 1970-01-01 00:00 UTC.
	unixEpochDay = 2440588
)

// Date is a proleptic Gregorian calendar date.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// DateTime is a Date with a time of day, truncated to whole seconds.
type DateTime struct {
	Date
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// String formats the date as 2006-01-02.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the value as 2006-01-02 15:04:05.
func (dt DateTime) String() string {
	return fmt.Sprintf("%s %02d:%02d:%02d", dt.Date, dt.Hour, dt.Minute, dt.Second)
}

// Time returns the instant in UTC.
func (dt DateTime) Time() time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC)
}

// Tuple returns [year, month, day, hour, minute, second].
func (dt DateTime) Tuple() [6]int {
	return [6]int{dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second}
}

// ToDate converts a Julian day value to its calendar date. Non-finite input
// yields the zero Date.
func ToDate(jd float64) Date {
	return ToDateTime(jd).Date
}

// ToDateTime converts a Julian day value to a calendar date and time of day.
// Non-finite input yields the zero DateTime.
func ToDateTime(jd float64) DateTime {
	if math.IsNaN(jd) || math.IsInf(jd, 0) {
		return DateTime{}
	}

	jd = roundNano(jd)
	secs := roundNano((jd - math.Floor(jd)) * secondsPerDay)

	date := gregorian(int64(math.Floor(jd)))

	return DateTime{
		Date:   date,
		Hour:   int(math.Floor(secs / 3600)),
		Minute: int(math.Floor(math.Mod(secs, 3600) / 60)),
		Second: int(math.Mod(secs, 60)),
	}
}

// FromTime returns the Julian day value of t.
func FromTime(t time.Time) float64 {
	return unixEpochDay + float64(t.UnixNano())/(secondsPerDay*1e9)
}

// roundNano rounds half-to-even at 1e-9 resolution after a half-unit shift.
func roundNano(v float64) float64 {
	return math.RoundToEven(roundingFactor*v+0.5) / roundingFactor
}

// gregorian splits a day number into year, month and day using the
// 146097/1461/153 day cycles of the proleptic Gregorian calendar.
func gregorian(day int64) Date {
	j := day - gregorianOffset
	in := 4*j - 1
	y := floorDiv(in, 146097)
	j = in - 146097*y
	in = floorDiv(j, 4)
	in = 4*in + 3
	j = floorDiv(in, 1461)
	d := floorDiv(in-1461*j+4, 4)
	in = 5*d - 3
	m := floorDiv(in, 153)
	d = floorDiv(in-153*m+5, 5)
	y = y*100 + j

	if m < 10 {
		return Date{Year: int(y), Month: int(m + 3), Day: int(d)}
	}
	return Date{Year: int(y + 1), Month: int(m - 9), Day: int(d)}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
