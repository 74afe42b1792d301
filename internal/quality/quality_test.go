package quality

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contract(user, resort string, price int64, points int, total int64) model.ContractEntry {
	e := model.ContractEntry{
		Username:         user,
		PricePerPoint:    decimal.NewFromInt(price),
		Points:           points,
		ResortCode:       resort,
		ResortRecognized: true,
		SentDate:         time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Result:           model.ResultPending,
	}
	if total > 0 {
		e.TotalCost = decimal.NewNullDecimal(decimal.NewFromInt(total))
	}
	return e
}

func flagsFor(r Report, user string) []Flag {
	var flags []Flag
	for _, issue := range r.Issues {
		if issue.Entry.Username == user {
			flags = append(flags, issue.Flag)
		}
	}
	return flags
}

func TestCheck_PerRecordFlags(t *testing.T) {
	inconsistent := contract("inconsistent", "SSR", 120, 100, 12000)
	inconsistent.DateInconsistent = true

	unknown := contract("unknown", "XYZ", 120, 100, 0)
	unknown.ResortRecognized = false

	entries := []model.ContractEntry{
		contract("clean", "SSR", 120, 100, 12000),
		contract("expensive", "VGF", 650, 100, 65000),
		contract("cheap", "HH", 20, 100, 2000),
		contract("swapped", "BWV", 14000, 100, 14000),
		contract("mismatch", "BWV", 120, 100, 15000),
		contract("no-total", "AKV", 120, 100, 0),
		inconsistent,
		unknown,
	}

	r := Check(entries, DefaultThresholds())

	assert.Equal(t, 8, r.Checked)
	assert.Empty(t, flagsFor(r, "clean"))
	assert.Empty(t, flagsFor(r, "no-total"))
	assert.Equal(t, []Flag{FlagHighPrice}, flagsFor(r, "expensive"))
	assert.Equal(t, []Flag{FlagLowPrice}, flagsFor(r, "cheap"))
	assert.Equal(t, []Flag{FlagHighPrice, FlagPriceEqualsTotal}, flagsFor(r, "swapped"))
	assert.Equal(t, []Flag{FlagTotalMismatch}, flagsFor(r, "mismatch"))
	assert.Equal(t, []Flag{FlagDateInconsistent}, flagsFor(r, "inconsistent"))
	assert.Equal(t, []Flag{FlagUnrecognizedResort}, flagsFor(r, "unknown"))
	assert.Equal(t, 2, r.Counts[FlagHighPrice])
}

func TestCheck_ResortOutliers(t *testing.T) {
	var entries []model.ContractEntry
	for i := range 12 {
		entries = append(entries, contract(fmt.Sprintf("u%d", i), "RIV", int64(180+i), 150, 0))
	}
	entries = append(entries, contract("outlier", "RIV", 260, 150, 0))

	// too few samples to judge
	for i := range 3 {
		entries = append(entries, contract(fmt.Sprintf("b%d", i), "BLT", int64(200+i*100), 150, 0))
	}

	r := Check(entries, DefaultThresholds())

	assert.Equal(t, []Flag{FlagResortOutlier}, flagsFor(r, "outlier"))
	assert.Equal(t, 1, r.Counts[FlagResortOutlier])

	rng, ok := r.Ranges["RIV"]
	require.True(t, ok)
	assert.Equal(t, 13, rng.Samples)
	_, ok = r.Ranges["BLT"]
	assert.False(t, ok)
}

func TestQuantile(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3), decimal.NewFromInt(4),
	}

	assert.True(t, decimal.NewFromInt(1).Equal(Quantile(values, 0)))
	assert.True(t, decimal.RequireFromString("1.75").Equal(Quantile(values, 0.25)), Quantile(values, 0.25).String())
	assert.True(t, decimal.RequireFromString("2.5").Equal(Quantile(values, 0.5)))
	assert.True(t, decimal.RequireFromString("3.25").Equal(Quantile(values, 0.75)))
	assert.True(t, decimal.NewFromInt(4).Equal(Quantile(values, 1)))
	assert.True(t, Quantile(nil, 0.5).IsZero())
}
