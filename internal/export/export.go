// Package export writes the merged record set as CSV, JSON or XLSX.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want csv, json or xlsx)", common.ErrUnsupportedFormat, name)
	}
}

// Columns is the column order shared by every tabular format.
var Columns = []string{
	"username", "price_per_point", "total_cost", "points", "resort",
	"use_year", "points_details", "sent_date",
	"result", "result_date",
	"thread_url", "raw_entry",
}

// Metadata describes an export.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	Count       int       `json:"count"`
}

// NewMetadata stamps an export of count entries.
func NewMetadata(count int, version string) Metadata {
	return Metadata{Count: count, GeneratedAt: time.Now().UTC(), Version: version}
}

// Row is the flat, string-typed view of one contract.
type Row struct {
	Username      string `json:"username"`
	PricePerPoint string `json:"price_per_point"`
	TotalCost     string `json:"total_cost"`
	Points        int    `json:"points"`
	Resort        string `json:"resort"`
	UseYear       string `json:"use_year"`
	PointsDetails string `json:"points_details"`
	SentDate      string `json:"sent_date"`
	Result        string `json:"result"`
	ResultDate    string `json:"result_date"`
	ThreadURL     string `json:"thread_url"`
	RawEntry      string `json:"raw_entry"`
}

// RowOf flattens a contract. Absent optional fields become empty strings.
func RowOf(c model.ContractEntry) Row {
	r := Row{
		Username:      c.Username,
		PricePerPoint: c.PricePerPoint.StringFixed(2),
		Points:        c.Points,
		Resort:        c.ResortCode,
		UseYear:       c.UseYear,
		PointsDetails: c.PointsDetails,
		SentDate:      c.SentDate.Format(model.DateLayout),
		Result:        string(c.Result),
		ThreadURL:     c.SourceURL,
		RawEntry:      c.RawText,
	}
	if c.TotalCost.Valid {
		r.TotalCost = c.TotalCost.Decimal.StringFixed(2)
	}
	if c.HasResultDate() {
		r.ResultDate = c.ResultDate.Format(model.DateLayout)
	}
	return r
}

// Values returns the row in Columns order.
func (r Row) Values() []string {
	return []string{
		r.Username, r.PricePerPoint, r.TotalCost, strconv.Itoa(r.Points), r.Resort,
		r.UseYear, r.PointsDetails, r.SentDate,
		r.Result, r.ResultDate,
		r.ThreadURL, r.RawEntry,
	}
}

// Write encodes entries to w in the given format.
func Write(w io.Writer, format Format, entries []model.ContractEntry, meta Metadata) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatJSON:
		return WriteJSON(w, entries, meta)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	default:
		return fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, format)
	}
}
