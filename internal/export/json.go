package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/rofr-ledger/internal/model"
)

// Document is the JSON export envelope.
type Document struct {
	Entries  []Row    `json:"entries"`
	Metadata Metadata `json:"metadata"`
}

// WriteJSON writes entries under a metadata block. Count always reflects len(entries).
func WriteJSON(w io.Writer, entries []model.ContractEntry, meta Metadata) error {
	doc := Document{
		Metadata: meta,
		Entries:  make([]Row, 0, len(entries)),
	}
	doc.Metadata.Count = len(entries)
	for _, e := range entries {
		doc.Entries = append(doc.Entries, RowOf(e))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
