package roster

import (
	"io"

	"github.com/xuri/excelize/v2"

	"certledger.dev/certledger/model"
)

// ReadWorkbook reads the FIRST sheet of an xlsx workbook into loosely-keyed
// rows. The first sheet must have a header row followed by at least one data
// row; an empty sheet is a hard Validation error.
//
// Cells missing at the end of a row read as "". Columns with an empty header
// are skipped.
func ReadWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, model.WrapError(model.KindValidation, "CERT-VAL-003", "cannot open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.NewError(model.KindValidation, "CERT-VAL-004", "workbook has no sheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, model.WrapError(model.KindValidation, "CERT-VAL-003", "cannot read sheet", err)
	}
	if len(cells) < 2 {
		return nil, model.NewError(model.KindValidation, "CERT-VAL-004", "sheet is empty")
	}

	header := cells[0]
	rows := make([]Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(Row, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(line) {
				row[key] = line[i]
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
