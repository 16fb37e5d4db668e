package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateNormalizer turns loosely formatted date text into comparable instants
type DateNormalizer struct {
	location *time.Location
	now      func() time.Time
}

// exactDateLayouts are tried against the whole trimmed text before pattern matching
var exactDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"Mon, Jan 2, 2006",
	"Mon, January 2, 2006",
	"Monday, January 2, 2006",
	"Monday, Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoDatePattern        = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDayYearPattern   = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4})\b)?`)
	dayMonthYearPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b\.?(?:,?\s+(\d{4})\b)?`)
	numericDatePattern    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	twelveHourPattern     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?m\.?\b`)
	twentyFourHourPattern = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	trailingYearPattern   = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	rangeSeparatorPattern = regexp.MustCompile(`(?i)^[,\s]*(?:-|–|—|to|until|till|through|thru|&|and)?[,\s]*(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?)?[,\s]*$`)
)

// yearLookahead bounds how far past a year-less date a trailing year is searched for,
// enough for "March 3 - April 5, 2027"
const yearLookahead = 20

// dateMatch is one date found in free text. end is exclusive.
type dateMatch struct {
	start, end int
	year       int
	month      time.Month
	day        int
	hasYear    bool
}

func (m dateMatch) sameDay(other dateMatch) bool {
	return m.year == other.year && m.month == other.month && m.day == other.day
}

// NewDateNormalizer creates a normalizer resolving zone-less dates in the given location
func NewDateNormalizer(location *time.Location) *DateNormalizer {
	if location == nil {
		location = time.Local
	}
	return &DateNormalizer{
		location: location,
		now:      time.Now,
	}
}

// NewDateNormalizerWithClock creates a normalizer with a custom reference clock
func NewDateNormalizerWithClock(location *time.Location, now func() time.Time) *DateNormalizer {
	normalizer := NewDateNormalizer(location)
	if now != nil {
		normalizer.now = now
	}
	return normalizer
}

// Location returns the location used for zone-less dates
func (d *DateNormalizer) Location() *time.Location {
	return d.location
}

// Now returns the reference clock reading in the normalizer's location
func (d *DateNormalizer) Now() time.Time {
	return d.now().In(d.location)
}

// Parse extracts a date (and time of day when present) from free-form text.
// ok is false when no unambiguous date could be found; empty text never parses.
func (d *DateNormalizer) Parse(text string) (parsed time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range exactDateLayouts {
		if t, err := time.ParseInLocation(layout, text, d.location); err == nil {
			return t, true
		}
	}

	if t, ok, attempted := d.parseEmbedded(text); attempted {
		return t, ok
	}

	return d.parseGeneric(text)
}

// parseEmbedded finds a date inside surrounding prose and attaches the time of day if one is present.
// attempted reports whether any date was seen; a seen but unusable date is not retried generically.
func (d *DateNormalizer) parseEmbedded(text string) (parsed time.Time, ok, attempted bool) {
	matches := d.findDates(text)
	if len(matches) == 0 {
		return time.Time{}, false, false
	}

	first, ok := pickDate(text, matches)
	if !ok || !validCalendarDate(first.year, first.month, first.day) {
		return time.Time{}, false, true
	}

	rest := text[:first.start] + " " + text[first.end:]
	hour, minute := findTimeOfDay(rest)

	return time.Date(first.year, first.month, first.day, hour, minute, 0, 0, d.location), true, true
}

// pickDate returns the earliest date in the text. Later dates must either repeat it or be
// joined to the previous date by a range separator ("March 3 - March 5, 2027"); otherwise
// the text names conflicting dates and none is picked.
func pickDate(text string, matches []dateMatch) (dateMatch, bool) {
	first := matches[0]
	for i := 1; i < len(matches); i++ {
		gap := strings.TrimSpace(text[matches[i-1].end:matches[i].start])
		if rangeSeparatorPattern.MatchString(gap) || matches[i].sameDay(first) {
			continue
		}
		return dateMatch{}, false
	}
	return first, true
}

// findDates returns every non-overlapping date in the text, ordered by position. Dates
// written without a year take a year that closely follows them, then the clock's year.
func (d *DateNormalizer) findDates(text string) []dateMatch {
	var candidates []dateMatch

	for _, m := range isoDatePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, dateMatch{
			start: m[0], end: m[1], hasYear: true,
			year:  atoi(text[m[2]:m[3]]),
			month: time.Month(atoi(text[m[4]:m[5]])),
			day:   atoi(text[m[6]:m[7]]),
		})
	}

	for _, m := range dayMonthYearPattern.FindAllStringSubmatchIndex(text, -1) {
		match := dateMatch{
			start: m[0], end: m[1],
			day:   atoi(text[m[2]:m[3]]),
			month: lookupMonth(text[m[4]:m[5]]),
		}
		if m[6] >= 0 {
			match.year, match.hasYear = atoi(text[m[6]:m[7]]), true
		}
		candidates = append(candidates, match)
	}

	for _, m := range monthDayYearPattern.FindAllStringSubmatchIndex(text, -1) {
		match := dateMatch{
			start: m[0], end: m[1],
			month: lookupMonth(text[m[2]:m[3]]),
			day:   atoi(text[m[4]:m[5]]),
		}
		if m[6] >= 0 {
			match.year, match.hasYear = atoi(text[m[6]:m[7]]), true
		}
		candidates = append(candidates, match)
	}

	for _, m := range numericDatePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, dateMatch{
			start: m[0], end: m[1], hasYear: true,
			month: time.Month(atoi(text[m[2]:m[3]])),
			day:   atoi(text[m[4]:m[5]]),
			year:  atoi(text[m[6]:m[7]]),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].end > candidates[j].end
	})

	matches := make([]dateMatch, 0, len(candidates))
	for _, candidate := range candidates {
		if n := len(matches); n > 0 && candidate.start < matches[n-1].end {
			continue
		}
		if !candidate.hasYear {
			candidate.year = d.yearAfter(text, candidate.end)
		}
		matches = append(matches, candidate)
	}

	return matches
}

// yearAfter returns the first year written shortly after pos, or the clock's year
func (d *DateNormalizer) yearAfter(text string, pos int) int {
	limit := pos + yearLookahead
	if limit > len(text) {
		limit = len(text)
	}
	if m := trailingYearPattern.FindStringSubmatch(text[pos:limit]); m != nil {
		return atoi(m[1])
	}
	return d.Now().Year()
}

// parseGeneric is the last resort for formats the patterns above do not cover
func (d *DateNormalizer) parseGeneric(text string) (parsed time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			parsed, ok = time.Time{}, false
		}
	}()

	t, err := dateparse.ParseIn(text, d.location)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// CalendarDay truncates an instant to its calendar date, keeping the date as written
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// findTimeOfDay returns hour and minute from the text, or midnight when none is present
func findTimeOfDay(text string) (hour, minute int) {
	if m := twelveHourPattern.FindStringSubmatch(text); m != nil {
		hour = atoi(m[1])
		if m[2] != "" {
			minute = atoi(m[2])
		}
		if hour >= 1 && hour <= 12 {
			pm := strings.EqualFold(m[3], "p")
			if hour == 12 {
				hour = 0
			}
			if pm {
				hour += 12
			}
			return hour, minute
		}
	}

	if m := twentyFourHourPattern.FindStringSubmatch(text); m != nil {
		return atoi(m[1]), atoi(m[2])
	}

	return 0, 0
}

func validCalendarDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 || year < 1 {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && t.Month() == month && t.Day() == day
}

func lookupMonth(name string) time.Month {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	return monthNames[key]
}

// atoi is only called on pattern groups that matched digits
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
