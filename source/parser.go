package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/extrame/xls"
	"gitlab.com/osaki-lab/iowrapper"
	"golang.org/x/xerrors"
)

// ErrNoSheet is returned when a workbook has no sheet at the requested index.
var ErrNoSheet = errors.New("no sheet found")

// Parser parses files from storage into records.
type Parser func(context.Context, io.Reader) ([][]string, error)

// CSVParser provides a parser to parse CSV files.
// Records may have different numbers of fields.
func CSVParser() Parser {
	return func(_ context.Context, r io.Reader) ([][]string, error) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		return cr.ReadAll()
	}
}

// XLSParser provides a parser to parse the sheet at index of Excel 97-2003 workbooks.
func XLSParser(index int) Parser {
	return func(_ context.Context, r io.Reader) ([][]string, error) {
		wb, err := xls.OpenReader(iowrapper.NewSeeker(r), "utf-8")
		if err != nil {
			return nil, xerrors.Errorf("failed to open xls file: %w", err)
		}

		sheet := wb.GetSheet(index)
		if sheet == nil {
			return nil, ErrNoSheet
		}

		records := [][]string{}

		for i := 0; i <= int(sheet.MaxRow); i++ {
			row, ok := xlsRow(sheet, i)
			if !ok {
				continue
			}

			records = append(records, xlsRecord(row.FirstCol(), row.LastCol(), row.Col))
		}

		return records, nil
	}
}

// xlsRecord reads the cells of a row from column 0 so that positions line up
// with the header. Columns before first are blank.
func xlsRecord(first, last int, cell func(int) string) []string {
	if first < 0 {
		first = 0
	}

	record := make([]string, 0, last)
	for col := 0; col < last; col++ {
		if col < first {
			record = append(record, "")
			continue
		}
		record = append(record, cell(col))
	}
	return record
}

// xlsRow recovers from the panic xls raises for rows without cells.
func xlsRow(sheet *xls.WorkSheet, i int) (r *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			r, ok = nil, false
		}
	}()

	r = sheet.Row(i)
	return r, r != nil
}
