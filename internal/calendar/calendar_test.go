package calendar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToDateTime(t *testing.T) {
	tests := []struct {
		name string
		jd   float64
		want [6]int
	}{
		{name: "epoch", jd: 2440000.0, want: [6]int{1968, 5, 23, 0, 0, 0}},
		{name: "epoch noon", jd: 2440000.5, want: [6]int{1968, 5, 23, 12, 0, 0}},
		{name: "quarter day", jd: 2440000.25, want: [6]int{1968, 5, 23, 6, 0, 0}},
		{name: "unix epoch", jd: 2440588.0, want: [6]int{1970, 1, 1, 0, 0, 0}},
		{name: "leap day", jd: 2451604.0, want: [6]int{2000, 2, 29, 0, 0, 0}},
		{name: "turn of year", jd: 2451545.75, want: [6]int{2000, 1, 1, 18, 0, 0}},
		{name: "december", jd: 2458484.0, want: [6]int{2018, 12, 31, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToDateTime(tt.jd).Tuple())
		})
	}
}

func TestToDate(t *testing.T) {
	d := ToDate(2440000.5)
	assert.Equal(t, Date{Year: 1968, Month: 5, Day: 23}, d)
	assert.Equal(t, "1968-05-23", d.String())
}

func TestMidnightBoundary(t *testing.T) {
	days := []float64{2440000, 2451545, 2458119, 2458484, 2459000}

	for _, day := range days {
		start := ToDate(day + 0.0)
		end := ToDate(day + 0.999999999)

		assert.Equal(t, 24*time.Hour, end.Time().Sub(start.Time()), "day %v", day)
	}
}

func TestConsecutiveDaysNeverRepeat(t *testing.T) {
	prev := ToDate(2458000)
	for day := 2458001.0; day < 2458800; day++ {
		cur := ToDate(day)
		assert.Equal(t, 24*time.Hour, cur.Time().Sub(prev.Time()), "day %v", day)
		prev = cur
	}
}

func TestFromTimeRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(1968, 5, 23, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 7, 14, 6, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 29, 18, 0, 0, 0, time.UTC),
	}

	for _, want := range instants {
		assert.Equal(t, want, ToDateTime(FromTime(want)).Time())
	}
	assert.Equal(t, 2440000.0, FromTime(instants[0]))
}

func TestNonFinite(t *testing.T) {
	assert.Equal(t, DateTime{}, ToDateTime(math.NaN()))
	assert.Equal(t, DateTime{}, ToDateTime(math.Inf(1)))
	assert.True(t, ToDate(math.NaN()).IsZero())
}

func TestDateTimeString(t *testing.T) {
	assert.Equal(t, "1968-05-23 12:00:00", ToDateTime(2440000.5).String())
}
