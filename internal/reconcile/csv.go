package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadCSV reads a header row followed by records. Every cell stays a
// string; coercion happens in Decode. Every header column is present in
// every row, with "" for blank or short records, so schema detection sees
// the header rather than which cells happen to be filled.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			row[h] = ""
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
}
