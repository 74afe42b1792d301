// Package thread derives the date coverage of a ROFR thread from its title.
package thread

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LeadMonths is how far before a thread's first month a sent date may fall and still belong to it.
const LeadMonths = 3

const monthAlternation = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`

var (
	// "January 2024 - March 2024", "Oct 2023 to Jan 2024"
	rangePattern = regexp.MustCompile(`(?i)(?:` + monthAlternation + `)\s+(\d{4})[-\s]+(?:to[-\s]+)?(?:` + monthAlternation + `)\s+(\d{4})`)
	// "April to June 2025", "April - June 2025"
	singleYearPattern = regexp.MustCompile(`(?i)(?:` + monthAlternation + `)(?:\s+to\s+|\s*-\s*)(?:` + monthAlternation + `)\s+(\d{4})`)
	monthPattern      = regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\b`)
	yearPattern       = regexp.MustCompile(`\b(20\d\d)\b`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Window is the inclusive span of months a thread collected entries for.
type Window struct {
	Start time.Time // first day of the first month
	End   time.Time // last day of the last month
}

// ParseTitle extracts the covered months from a thread title such as
// "ROFR Thread January 2024 - March 2024". It returns false when the title has no usable dates.
func ParseTitle(title string) (Window, bool) {
	var startYear, endYear int

	if m := rangePattern.FindStringSubmatch(title); m != nil {
		startYear, _ = strconv.Atoi(m[1])
		endYear, _ = strconv.Atoi(m[2])
	} else if m := singleYearPattern.FindStringSubmatch(title); m != nil {
		startYear, _ = strconv.Atoi(m[1])
		endYear = startYear
	} else if years := yearPattern.FindAllString(title, -1); len(years) > 0 {
		startYear, _ = strconv.Atoi(years[0])
		endYear, _ = strconv.Atoi(years[len(years)-1])
	}
	if startYear == 0 {
		return Window{}, false
	}

	months := monthPattern.FindAllString(title, -1)
	if len(months) == 0 {
		return Window{}, false
	}
	startMonth := monthNumber(months[0])
	endMonth := monthNumber(months[len(months)-1])

	start := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the following month is the last day of endMonth
	end := time.Date(endYear, endMonth+1, 0, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return Window{}, false
	}

	return Window{Start: start, End: end}, true
}

func monthNumber(name string) time.Month {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	return monthNumbers[key]
}

// Admits reports whether d falls inside the window, allowing LeadMonths before its start.
func (w Window) Admits(d time.Time) bool {
	earliest := w.Start.AddDate(0, -LeadMonths, 0)
	return !d.Before(earliest) && !d.After(w.End)
}

// Overlaps reports whether any part of the window is on or after from.
func (w Window) Overlaps(from time.Time) bool {
	return !w.End.Before(from)
}
