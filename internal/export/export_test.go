package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleEntries() []model.ContractEntry {
	sept := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	return []model.ContractEntry{
		{
			Username:      "pangyal",
			PricePerPoint: decimal.NewFromInt(144),
			TotalCost:     decimal.NewNullDecimal(decimal.NewFromInt(33296)),
			Points:        219,
			ResortCode:    "VGF",
			UseYear:       "Aug",
			PointsDetails: "113/14, 219/15",
			SentDate:      time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC),
			Result:        model.ResultPassed,
			ResultDate:    &sept,
			SourceURL:     "https://forum.example/t/1",
			RawText:       "pangyal---$144-$33296-219-VGF-Aug-113/14, 219/15- sent 8/24, passed 9/24",
		},
		{
			Username:      "user",
			PricePerPoint: decimal.RequireFromString("99.5"),
			Points:        100,
			ResortCode:    "AKV",
			SentDate:      time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
			Result:        model.ResultPending,
			SourceURL:     "https://forum.example/t/1",
			RawText:       "user---$99.5-100-AKV- sent 1/23",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"csv", "JSON", " xlsx "} {
		_, err := ParseFormat(name)
		assert.NoError(t, err, name)
	}

	_, err := ParseFormat("parquet")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestRowOf(t *testing.T) {
	entries := sampleEntries()

	r := RowOf(entries[0])
	assert.Equal(t, "144.00", r.PricePerPoint)
	assert.Equal(t, "33296.00", r.TotalCost)
	assert.Equal(t, "2024-08-01", r.SentDate)
	assert.Equal(t, "2024-09-01", r.ResultDate)
	assert.Len(t, r.Values(), len(Columns))

	r = RowOf(entries[1])
	assert.Equal(t, "99.50", r.PricePerPoint)
	assert.Empty(t, r.TotalCost)
	assert.Empty(t, r.ResultDate)
	assert.Equal(t, "pending", r.Result)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleEntries(), Metadata{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "pangyal", records[1][0])
	assert.Equal(t, "113/14, 219/15", records[1][6])
	assert.Equal(t, sampleEntries()[0].RawText, records[1][11])
	assert.Equal(t, "", records[2][2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := NewMetadata(99, "1.2.3")
	require.NoError(t, Write(&buf, FormatJSON, sampleEntries(), meta))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 2, doc.Metadata.Count, "count is taken from the entries")
	assert.Equal(t, "1.2.3", doc.Metadata.Version)
	assert.False(t, doc.Metadata.GeneratedAt.IsZero())
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, RowOf(sampleEntries()[1]), doc.Entries[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleEntries(), Metadata{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "pangyal", rows[1][0])
	assert.Equal(t, "144", rows[1][1])
	assert.Equal(t, "219", rows[1][3])
	assert.Equal(t, "VGF", rows[1][4])
}

func TestWriteUnsupported(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("yaml"), nil, Metadata{})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}
