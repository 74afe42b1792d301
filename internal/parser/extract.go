package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Extraction errors.
var (
	ErrEmptyField        = errors.New("empty field")
	ErrUnparseableNumber = errors.New("unparseable number")
	ErrNonPositive       = errors.New("value must be positive")
)

var numberCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "")

// ParsePrice converts a currency token such as "$144" or "33,296.50" to a positive decimal.
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := numberCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, ErrEmptyField
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseableNumber, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNonPositive, raw)
	}

	return d, nil
}

// ParsePoints converts a point-volume token to a positive integer.
func ParsePoints(raw string) (int, error) {
	cleaned := numberCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, ErrEmptyField
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableNumber, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNonPositive, raw)
	}

	return n, nil
}

// NormalizeResort uppercases a resort token and maps it onto the fixed enumeration.
// Unknown codes are returned cleaned but unrecognized so that new resorts are not lost.
func NormalizeResort(raw string) (code string, recognized bool) {
	upper := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if upper == "" {
		return "", false
	}

	if canonical, ok := model.ResolveResortAlias(upper); ok {
		return canonical, true
	}

	stripped := strings.ReplaceAll(upper, "@", "")
	if _, ok := model.LookupResort(stripped); ok {
		return stripped, true
	}

	// "CCV@something" where only the part before the @ is meaningful
	if idx := strings.Index(upper, "@"); idx > 0 {
		if _, ok := model.LookupResort(upper[:idx]); ok {
			return upper[:idx], true
		}
	}

	return stripped, false
}

var useYears = map[string]string{
	"jan": "Jan", "january": "Jan",
	"feb": "Feb", "february": "Feb",
	"mar": "Mar", "march": "Mar",
	"apr": "Apr", "april": "Apr",
	"may": "May",
	"jun": "Jun", "june": "Jun",
	"jul": "Jul", "july": "Jul",
	"aug": "Aug", "august": "Aug",
	"sep": "Sep", "sept": "Sep", "september": "Sep",
	"oct": "Oct", "october": "Oct",
	"nov": "Nov", "november": "Nov",
	"dec": "Dec", "december": "Dec",
}

// ParseUseYear returns the three-letter use-year month, or "" when raw is not a month.
func ParseUseYear(raw string) string {
	return useYears[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseOutcome maps the optional outcome keyword; an absent keyword means pending.
func ParseOutcome(raw string) model.Result {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "passed":
		return model.ResultPassed
	case "taken":
		return model.ResultTaken
	default:
		return model.ResultPending
	}
}
