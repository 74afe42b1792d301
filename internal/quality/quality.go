// Package quality flags merged contracts whose numbers look like data-entry mistakes.
package quality

import (
	"fmt"
	"sort"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Flag names one kind of suspicious record.
type Flag string

// Quality flags.
const (
	FlagHighPrice          Flag = "high_price"
	FlagLowPrice           Flag = "low_price"
	FlagPriceEqualsTotal   Flag = "price_equals_total"
	FlagTotalMismatch      Flag = "total_mismatch"
	FlagDateInconsistent   Flag = "date_inconsistent"
	FlagUnrecognizedResort Flag = "unrecognized_resort"
	FlagResortOutlier      Flag = "resort_outlier"
)

// Thresholds tune the checks.
type Thresholds struct {
	HighPrice        decimal.Decimal // per point
	LowPrice         decimal.Decimal // per point
	TotalTolerance   decimal.Decimal // allowed |total - price*points| in dollars
	IQRMultiplier    decimal.Decimal
	MinResortSamples int
}

// DefaultThresholds returns the limits used for forum data.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighPrice:        decimal.NewFromInt(500),
		LowPrice:         decimal.NewFromInt(25),
		TotalTolerance:   decimal.NewFromInt(100),
		IQRMultiplier:    decimal.NewFromInt(2),
		MinResortSamples: 10,
	}
}

// Issue is one flagged record.
type Issue struct {
	Key    model.DedupKey
	Flag   Flag
	Detail string
	Entry  model.ContractEntry
}

// Range is the interquartile price range of one resort.
type Range struct {
	Q1      decimal.Decimal
	Q3      decimal.Decimal
	Samples int
}

// Report collects every issue found in one pass.
type Report struct {
	Counts  map[Flag]int
	Ranges  map[string]Range
	Issues  []Issue
	Checked int
}

// Check runs every per-record check plus the per-resort outlier check.
func Check(entries []model.ContractEntry, t Thresholds) Report {
	r := Report{
		Counts:  make(map[Flag]int),
		Ranges:  make(map[string]Range),
		Checked: len(entries),
	}

	add := func(e model.ContractEntry, flag Flag, detail string) {
		r.Issues = append(r.Issues, Issue{Key: e.DedupKey(), Flag: flag, Detail: detail, Entry: e})
		r.Counts[flag]++
	}

	byResort := make(map[string][]model.ContractEntry)
	for _, e := range entries {
		price := e.PricePerPoint

		switch {
		case price.GreaterThan(t.HighPrice):
			add(e, FlagHighPrice, fmt.Sprintf("$%s/point above $%s", price.StringFixed(2), t.HighPrice))
		case price.LessThan(t.LowPrice):
			add(e, FlagLowPrice, fmt.Sprintf("$%s/point below $%s", price.StringFixed(2), t.LowPrice))
		}

		if e.TotalCost.Valid {
			total := e.TotalCost.Decimal
			if total.Sub(price).Abs().LessThan(t.TotalTolerance) {
				add(e, FlagPriceEqualsTotal, fmt.Sprintf("price $%s is within $%s of total $%s", price.StringFixed(2), t.TotalTolerance, total.StringFixed(2)))
			} else {
				expected := price.Mul(decimal.NewFromInt(int64(e.Points)))
				if diff := total.Sub(expected).Abs(); diff.GreaterThan(t.TotalTolerance) {
					add(e, FlagTotalMismatch, fmt.Sprintf("total $%s differs from price*points $%s by $%s",
						total.StringFixed(2), expected.StringFixed(2), diff.StringFixed(2)))
				}
			}
		}

		if e.DateInconsistent {
			add(e, FlagDateInconsistent, "result date precedes sent date")
		}
		if !e.ResortRecognized {
			if _, known := model.LookupResort(e.ResortCode); !known {
				add(e, FlagUnrecognizedResort, fmt.Sprintf("resort %q is not in the resort list", e.ResortCode))
			}
		}

		byResort[e.ResortCode] = append(byResort[e.ResortCode], e)
	}

	resorts := make([]string, 0, len(byResort))
	for code := range byResort {
		resorts = append(resorts, code)
	}
	sort.Strings(resorts)

	for _, code := range resorts {
		group := byResort[code]
		if len(group) < t.MinResortSamples {
			continue
		}

		prices := make([]decimal.Decimal, len(group))
		for i, e := range group {
			prices[i] = e.PricePerPoint
		}
		sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

		q1 := Quantile(prices, 0.25)
		q3 := Quantile(prices, 0.75)
		r.Ranges[code] = Range{Q1: q1, Q3: q3, Samples: len(group)}

		iqr := q3.Sub(q1)
		if iqr.IsZero() {
			continue
		}
		lower := q1.Sub(t.IQRMultiplier.Mul(iqr))
		upper := q3.Add(t.IQRMultiplier.Mul(iqr))

		for _, e := range group {
			if e.PricePerPoint.LessThan(lower) || e.PricePerPoint.GreaterThan(upper) {
				add(e, FlagResortOutlier, fmt.Sprintf("$%s/point outside %s range $%s-$%s",
					e.PricePerPoint.StringFixed(2), code, lower.StringFixed(2), upper.StringFixed(2)))
			}
		}
	}

	return r
}

// Quantile returns the q-th quantile of sorted values using linear interpolation between
// closest ranks. It returns zero for an empty slice.
func Quantile(sorted []decimal.Decimal, q float64) decimal.Decimal {
	if len(sorted) == 0 {
		return decimal.Zero
	}

	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := decimal.NewFromFloat(pos - float64(lo))
	return sorted[lo].Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac))
}
