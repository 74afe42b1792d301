package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/Veraticus/rofr-ledger/internal/quality"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Code", "Count"}, [][]string{
		{"SSR", "12"},
		{"BLT"},
	})

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "Code")
	assert.Contains(t, out, "SSR")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "BLT")
}

func TestContractRow(t *testing.T) {
	decided := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	c := model.ContractEntry{
		Username:         "pangyal",
		ResortCode:       "SSR",
		ResortRecognized: true,
		Points:           219,
		PricePerPoint:    decimal.RequireFromString("144.5"),
		UseYear:          "Aug",
		SentDate:         time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Result:           model.ResultTaken,
		ResultDate:       &decided,
	}

	row := ContractRow(c)

	require.Len(t, row, len(ContractHeaders))
	assert.Equal(t, "2024-03-01", row[0])
	assert.Equal(t, "pangyal", row[1])
	assert.Equal(t, "SSR", row[2])
	assert.Equal(t, "219", row[3])
	assert.Equal(t, "$144.50", row[4])
	assert.Contains(t, row[6], "taken")
	assert.Equal(t, "2024-03-31", row[7])

	c.ResortRecognized = false
	c.ResultDate = nil
	row = ContractRow(c)
	assert.Contains(t, row[2], "SSR?")
	assert.Empty(t, row[7])
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary("Ingest Summary", parser.Summary{
		Lines:               10,
		Matched:             7,
		NoMatch:             2,
		NearMiss:            1,
		DroppedMissingField: 1,
		Inserted:            5,
		Updated:             2,
		MergeAnomalies:      1,
	}, 3)

	assert.Contains(t, out, "Ingest Summary")
	assert.Contains(t, out, "Read: 10")
	assert.Contains(t, out, "Matched: 7")
	assert.Contains(t, out, "near misses: 1")
	assert.Contains(t, out, "Posts outside the date window: 3")
	assert.Contains(t, out, "Inserted: 5")
	assert.Contains(t, out, "Merge anomalies: 1")
	assert.NotContains(t, out, "Date-inconsistent")
}

func TestRenderQuality(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		out := RenderQuality(quality.Report{Checked: 4}, 10)
		assert.Contains(t, out, "Checked 4 contracts")
		assert.Contains(t, out, "No issues found")
	})

	t.Run("issues truncated", func(t *testing.T) {
		report := quality.Report{
			Checked: 3,
			Counts:  map[quality.Flag]int{quality.FlagHighPrice: 3},
			Ranges: map[string]quality.Range{
				"RIV": {Q1: decimal.NewFromInt(183), Q3: decimal.NewFromInt(189), Samples: 13},
			},
		}
		for _, user := range []string{"a", "b", "c"} {
			report.Issues = append(report.Issues, quality.Issue{
				Flag:  quality.FlagHighPrice,
				Entry: model.ContractEntry{Username: user},
			})
		}

		out := RenderQuality(report, 2)
		assert.Contains(t, out, "high_price: 3")
		assert.Contains(t, out, "RIV")
		assert.Contains(t, out, "$183.00")
		assert.Contains(t, out, "1 more")
	})
}

func TestNewProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgress(&buf, 3, "Parsing lines")

	for range 3 {
		require.NoError(t, bar.Add(1))
	}
	assert.True(t, bar.IsFinished())
}
