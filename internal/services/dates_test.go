package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDateNormalizer_Parse(t *testing.T) {
	normalizer := NewDateNormalizerWithClock(time.UTC, fixedClock(time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)))

	testCases := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "ISO date",
			input:    "2026-02-01",
			expected: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Schema format with weekday",
			input:    "Sat, Feb 7, 2026",
			expected: time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Long month name",
			input:    "March 3, 2027",
			expected: time.Date(2027, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Date with time of day",
			input:    "Thursday, April 9th, 2026 at 6:30 PM PDT",
			expected: time.Date(2026, time.April, 9, 18, 30, 0, 0, time.UTC),
		},
		{
			name:     "Date inside prose",
			input:    "Join us on Sept 12 2026 for an evening of talks",
			expected: time.Date(2026, time.September, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Day before month",
			input:    "Keynote: 14 November 2026, Berlin",
			expected: time.Date(2026, time.November, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "ISO date with 24 hour time",
			input:    "2026-05-20 18:00",
			expected: time.Date(2026, time.May, 20, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "Numeric month first",
			input:    "Doors open 6/18/2026 7pm",
			expected: time.Date(2026, time.June, 18, 19, 0, 0, 0, time.UTC),
		},
		{
			name:     "Missing year takes reference year",
			input:    "Feb 20 @ 10am",
			expected: time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "Noon",
			input:    "July 4, 2026 12pm",
			expected: time.Date(2026, time.July, 4, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "Day before month without year",
			input:    "3 March",
			expected: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Earliest of a repeated date",
			input:    "March 3, 2027. See you on March 3, 2027 at 9:00",
			expected: time.Date(2027, time.March, 3, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, ok := normalizer.Parse(tc.input)
			require.True(t, ok, "expected %q to parse", tc.input)
			assert.True(t, tc.expected.Equal(parsed), "expected %v, got %v", tc.expected, parsed)
		})
	}
}

func TestDateNormalizer_Unparseable(t *testing.T) {
	normalizer := NewDateNormalizer(time.UTC)

	for _, input := range []string{
		"", "   ", "TBD", "coming soon", "2026-02-30",
		"Posted 2025-10-01. Event on March 3, 2027",
		"Updated March 1, 2026, next session 2027-05-04",
	} {
		t.Run(input, func(t *testing.T) {
			_, ok := normalizer.Parse(input)
			assert.False(t, ok, "expected %q to be unparseable", input)
		})
	}
}

func TestDateNormalizer_DateRanges(t *testing.T) {
	normalizer := NewDateNormalizerWithClock(time.UTC, fixedClock(time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)))

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"March 3-5, 2027", time.Date(2027, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{"Mar 3 - 5, 2027", time.Date(2027, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{"March 3 & 4, 2027", time.Date(2027, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{"Feb 7 – Feb 9, 2027", time.Date(2027, time.February, 7, 0, 0, 0, 0, time.UTC)},
		{"March 30 to April 2, 2027", time.Date(2027, time.March, 30, 0, 0, 0, 0, time.UTC)},
		{"Sat, Feb 6, 2027 - Sun, Feb 7, 2027", time.Date(2027, time.February, 6, 0, 0, 0, 0, time.UTC)},
		{"Nov 20 - 21", time.Date(2026, time.November, 20, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			parsed, ok := normalizer.Parse(tc.input)
			require.True(t, ok, "expected %q to parse", tc.input)
			assert.True(t, tc.expected.Equal(parsed), "expected %v, got %v", tc.expected, parsed)
		})
	}
}

func TestDateNormalizer_ZoneLessDatesUseLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	normalizer := NewDateNormalizer(tokyo)

	parsed, ok := normalizer.Parse("2026-03-01")
	require.True(t, ok)
	assert.Equal(t, tokyo, parsed.Location())
	assert.Equal(t, 1, parsed.Day())
}

func TestCalendarDay(t *testing.T) {
	late := time.Date(2026, time.March, 1, 23, 59, 0, 0, time.FixedZone("X", -5*60*60))

	day := CalendarDay(late)

	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), day)
}

func TestFindTimeOfDay(t *testing.T) {
	testCases := []struct {
		input  string
		hour   int
		minute int
	}{
		{"at 6:30 PM", 18, 30},
		{"12am", 0, 0},
		{"9 a.m. sharp", 9, 0},
		{"starts 14:45", 14, 45},
		{"no time here", 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			hour, minute := findTimeOfDay(tc.input)
			assert.Equal(t, tc.hour, hour)
			assert.Equal(t, tc.minute, minute)
		})
	}
}
