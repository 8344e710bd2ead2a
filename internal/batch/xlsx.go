package batch

import (
	"io"
	"strconv"
	"strings"

	carterrors "cartera-reconciler/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first sheet of a spreadsheet into an ordered batch.
// The first row provides the headers; missing cells default to "".
// Numeric cells (including date serials) are kept as float64 so the date
// normalizer can apply the spreadsheet epoch.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, carterrors.Wrap(err, carterrors.CategoryParse, carterrors.CodeInvalidFormat,
			"failed to open spreadsheet").
			WithSuggestion("verify the file is a valid .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, carterrors.New(carterrors.CategoryParse, carterrors.CodeInvalidFormat,
			"spreadsheet contains no sheets")
	}

	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, carterrors.Wrap(err, carterrors.CategoryParse, carterrors.CodeInvalidFormat,
			"failed to read sheet rows").
			WithContext("sheet", sheets[0])
	}
	if len(raw) == 0 {
		return nil, nil
	}

	headers := raw[0]
	rows := make([]Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = coerceCell(cells[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// coerceCell turns a raw cell string into a float64 when it is purely
// numeric, matching how spreadsheet tooling exposes number and date cells.
func coerceCell(s string) interface{} {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return t
}
