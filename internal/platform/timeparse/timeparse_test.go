package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	}
}

func TestParse_Formats(t *testing.T) {
	p := New()

	tests := []struct {
		name   string
		input  string
		hour   int
		minute int
		f24    string
		f12    string
	}{
		{"24h morning", "08:30", 8, 30, "08:30", "8:30 AM"},
		{"24h afternoon", "14:30", 14, 30, "14:30", "2:30 PM"},
		{"24h single digit hour", "9:05", 9, 5, "09:05", "9:05 AM"},
		{"midnight 24h", "00:00", 0, 0, "00:00", "12:00 AM"},
		{"noon 24h", "12:00", 12, 0, "12:00", "12:00 PM"},
		{"12h pm", "2:30 PM", 14, 30, "14:30", "2:30 PM"},
		{"12h am lowercase", "9:15 am", 9, 15, "09:15", "9:15 AM"},
		{"12h extra spaces", "  2:30   pm ", 14, 30, "14:30", "2:30 PM"},
		{"midnight 12h", "12:00 AM", 0, 0, "00:00", "12:00 AM"},
		{"noon 12h", "12:00 PM", 12, 0, "12:00", "12:00 PM"},
		{"hour only", "7", 7, 0, "07:00", "7:00 AM"},
		{"hour only two digits", "23", 23, 0, "23:00", "11:00 PM"},
		{"hour only zero", "0", 0, 0, "00:00", "12:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := p.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.hour, r.Hour24)
			assert.Equal(t, tt.minute, r.Minute)
			assert.Equal(t, tt.f24, r.Formatted24)
			assert.Equal(t, tt.f12, r.Formatted12)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	p := New()

	inputs := []string{"00:00", "08:30", "12:00", "14:30", "23:59", "2:30 PM", "12:00 AM", "11:59 PM"}
	for _, in := range inputs {
		r1, err := p.Parse(in)
		require.NoError(t, err, in)

		// parse(format(parse(x))) reproduce el mismo (hour24, minute)
		r24, err := p.Parse(r1.Formatted24)
		require.NoError(t, err)
		assert.Equal(t, r1.Hour24, r24.Hour24, in)
		assert.Equal(t, r1.Minute, r24.Minute, in)

		r12, err := p.Parse(r1.Formatted12)
		require.NoError(t, err)
		assert.Equal(t, r1.Hour24, r12.Hour24, in)
		assert.Equal(t, r1.Minute, r12.Minute, in)
	}
}

func TestParse_Invalid(t *testing.T) {
	p := New()

	invalid := []string{"24:00", "12:60", "13:00 PM", "0:30 AM", "abc", "12:3", "1:2:3", "12h30"}
	for _, in := range invalid {
		_, err := p.Parse(in)
		assert.Error(t, err, in)
		assert.NotErrorIs(t, err, ErrInputRequired, in)
	}
}

func TestParse_EmptyInputIsDistinct(t *testing.T) {
	p := New()

	for _, in := range []string{"", "   "} {
		_, err := p.Parse(in)
		assert.ErrorIs(t, err, ErrInputRequired, "%q", in)
	}
}

func TestHasPassed(t *testing.T) {
	p := NewWithClock(fixedClock(10, 30))

	tests := []struct {
		time   string
		passed bool
	}{
		{"09:00", true},
		{"10:29", true},
		{"10:30", true}, // igualdad exacta cuenta como pasada
		{"10:31", false},
		{"23:00", false},
	}
	for _, tt := range tests {
		got, err := p.HasPassed(tt.time)
		require.NoError(t, err)
		assert.Equal(t, tt.passed, got, tt.time)
	}
}

func TestMinutesUntil(t *testing.T) {
	p := NewWithClock(fixedClock(10, 30))

	tests := []struct {
		time string
		want int
	}{
		{"10:31", 1},
		{"11:30", 60},
		{"23:59", 809},
		{"10:29", 1439}, // ya pasó => envuelve al día siguiente
		{"00:00", 810},
		{"10:30", 1440}, // convención: "ahora" exacto lee como "en 24h"
	}
	for _, tt := range tests {
		got, err := p.MinutesUntil(tt.time)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.time)
	}
}

func TestTimeDifference(t *testing.T) {
	p := New()

	tests := []struct {
		a, b string
		want int
	}{
		{"10:00", "10:00", 0},
		{"10:00", "11:30", 90},
		{"22:00", "02:00", 240}, // envuelve medianoche
		{"23:59", "00:00", 1},
	}
	for _, tt := range tests {
		got, err := p.TimeDifference(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.a, tt.b)
	}

	_, err := p.TimeDifference("bad", "10:00")
	assert.Error(t, err)
}

func TestIsSameTime(t *testing.T) {
	p := New()

	assert.True(t, p.IsSameTime("14:30", "2:30 PM"))
	assert.True(t, p.IsSameTime("00:00", "12:00 AM"))
	assert.False(t, p.IsSameTime("14:30", "14:31"))
	assert.False(t, p.IsSameTime("garbage", "garbage"))
}

func TestSortTimes(t *testing.T) {
	p := New()

	got := p.SortTimes([]string{"14:00", "08:00", "2:00 PM", "9:00 AM"})
	assert.Equal(t, []string{"08:00", "9:00 AM", "14:00", "2:00 PM"}, got)
}

func TestSortTimes_UnparseableSurvive(t *testing.T) {
	p := New()

	got := p.SortTimes([]string{"zzz", "14:00", "???", "08:00"})
	assert.Len(t, got, 4)
	assert.Contains(t, got, "zzz")
	assert.Contains(t, got, "???")
	// los parseables quedan en orden cronológico entre sí
	assert.Equal(t, []string{"08:00", "14:00", "zzz", "???"}, got)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0 minutes"},
		{1, "1 minute"},
		{45, "45 minutes"},
		{60, "1 hour"},
		{120, "2 hours"},
		{61, "1 hour and 1 minute"},
		{150, "2 hours and 30 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.minutes))
	}
}
