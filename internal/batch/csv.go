package batch

import (
	"encoding/csv"
	"io"
	"strings"

	carterrors "cartera-reconciler/pkg/errors"
)

// ReadCSV reads a delimited batch. The first record provides the headers.
// Ragged rows are tolerated: short rows are padded with "" and extra cells
// are ignored.
func ReadCSV(r io.Reader, delimiter rune) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, carterrors.Wrap(err, carterrors.CategoryParse, carterrors.CodeInvalidFormat,
			"failed to read delimited batch").
			WithSuggestion("check the delimiter and file encoding")
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, cells := range records[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = strings.TrimSpace(cells[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
