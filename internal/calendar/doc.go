// Package calendar converts fractional Julian day values into Gregorian
// calendar dates for the ADCP viewer.
//
// The day numbering starts at midnight: day 2440000 begins at 00:00 on
// 1968-05-23. Both the day value and the derived seconds-of-day are rounded to
// nanosecond-of-day resolution before decomposition so that values sitting on
// a day boundary do not fall into the neighbouring day.
//
// Example usage:
//
//	dt := calendar.ToDateTime(2440000.5)
//	fmt.Println(dt) // 1968-05-23 12:00:00
//
//	d := calendar.ToDate(2440000.5)
//	fmt.Println(d) // 1968-05-23
package calendar
