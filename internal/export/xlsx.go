package export

import (
	"fmt"
	"io"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds exported contracts.
const SheetName = "ROFR"

var columnWidths = []float64{18, 14, 14, 10, 10, 10, 30, 12, 10, 12, 40, 60}

// WriteXLSX writes a single-sheet workbook with a styled, frozen header row.
// Prices and points are written as numbers so the sheet can be sorted and charted.
func WriteXLSX(w io.Writer, entries []model.ContractEntry) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", closeErr)
		}
	}()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4285F4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, xlsxRow(e)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxRow(e model.ContractEntry) *[]any {
	r := RowOf(e)
	price, _ := e.PricePerPoint.Float64()

	var total any = ""
	if e.TotalCost.Valid {
		total, _ = e.TotalCost.Decimal.Float64()
	}

	row := []any{
		r.Username, price, total, r.Points, r.Resort,
		r.UseYear, r.PointsDetails, r.SentDate,
		r.Result, r.ResultDate,
		r.ThreadURL, r.RawEntry,
	}
	return &row
}
