package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Veraticus/rofr-ledger/internal/model"
)

// WriteCSV writes a header row followed by one row per contract.
func WriteCSV(w io.Writer, entries []model.ContractEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(RowOf(e).Values()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
