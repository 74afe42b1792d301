package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PivotYear splits two-digit years: below it resolves to 20YY, at or above to 19YY.
const PivotYear = 50

// ErrUnparseableDate is returned when an M/YY token cannot be resolved to a calendar date.
var ErrUnparseableDate = errors.New("unparseable date")

// ResolveMonthYear converts an "M/YY" token into the first day of that month in UTC.
func ResolveMonthYear(token string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(token), "/")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, token)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: bad month", ErrUnparseableDate, token)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: bad year", ErrUnparseableDate, token)
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: %q: month out of range", ErrUnparseableDate, token)
	}
	if year < 0 {
		return time.Time{}, fmt.Errorf("%w: %q: negative year", ErrUnparseableDate, token)
	}

	if year < 100 {
		if year < PivotYear {
			year += 2000
		} else {
			year += 1900
		}
	}

	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// Dates are the resolved sent and result dates of one line.
type Dates struct {
	Sent         time.Time
	Result       *time.Time
	Inconsistent bool // result date precedes sent date
}

// ResolveDates resolves the sent token and the optional result token.
// A result date earlier than the sent date is flagged, not rejected.
func ResolveDates(sentToken, resultToken string) (Dates, error) {
	sent, err := ResolveMonthYear(sentToken)
	if err != nil {
		return Dates{}, fmt.Errorf("sent date: %w", err)
	}

	d := Dates{Sent: sent}
	if strings.TrimSpace(resultToken) == "" {
		return d, nil
	}

	result, err := ResolveMonthYear(resultToken)
	if err != nil {
		return Dates{}, fmt.Errorf("result date: %w", err)
	}
	d.Result = &result
	d.Inconsistent = result.Before(sent)

	return d, nil
}
