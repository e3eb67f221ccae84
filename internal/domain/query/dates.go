package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ISODate is the canonical date layout of descriptors and the table.
const ISODate = "2006-01-02"

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|` +
	`jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTimeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?$`)
	dayFirstRe    = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})$`)
	dayMonthRe    = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `)\.?,?\s+(\d{4})$`)
	monthDayRe    = regexp.MustCompile(`(?i)^(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)

	// Patterns that locate dates in free text, most specific first.
	textDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b` + monthNames + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	}

	openEndedRe = regexp.MustCompile(`(?i)\b(since|from|starting|after|onwards?)\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate normalizes a user or table date to YYYY-MM-DD. Numeric dates
// that are not ISO are read day first (10/3/22 is 10 March 2022).
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case isoDateRe.MatchString(s):
		return checkDate(s)
	case isoDateTimeRe.MatchString(s):
		return checkDate(isoDateTimeRe.FindStringSubmatch(s)[1])
	}
	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], monthNumber(m[2]), m[1], s)
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], monthName(m[2]), m[1], s)
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], monthName(m[1]), m[2], s)
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

func checkDate(s string) (string, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return t.Format(ISODate), nil
}

func monthNumber(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Month(n)
}

func monthName(s string) time.Month {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0
	}
	return months[s[:3]]
}

func buildDate(year string, month time.Month, day, raw string) (string, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	if len(year) == 2 {
		// Same pivot as strptime's %y.
		if y < 69 {
			y += 2000
		} else {
			y += 1900
		}
	}
	d, err := strconv.Atoi(day)
	if err != nil || month < time.January || month > time.December || d < 1 {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	return t.Format(ISODate), nil
}

// DatesInText returns the date strings of the text in the order they appear.
func DatesInText(text string) []string {
	type hit struct {
		start, end int
		s          string
	}
	var hits []hit
	for _, re := range textDatePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{start: loc[0], end: loc[1], s: text[loc[0]:loc[1]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})
	out := make([]string, 0, len(hits))
	end := -1
	for _, h := range hits {
		if h.start < end {
			continue
		}
		out = append(out, h.s)
		end = h.end
	}
	return out
}

// MentionsDates reports whether the text contains at least one date.
func MentionsDates(text string) bool {
	return len(DatesInText(text)) > 0
}

// OpenEnded reports whether the text asks for a range that runs until now,
// as in "since 10/3/22".
func OpenEnded(text string) bool {
	return openEndedRe.MatchString(text)
}
