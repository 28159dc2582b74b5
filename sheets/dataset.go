package sheets

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/sheets/v4"

	"go.nownabe.dev/sqlloader"
)

// ImportOptions controls ImportDataset.
type ImportOptions struct {
	// ClearAndResize clears the worksheet and resizes it to the data rows plus ExtraRows.
	ClearAndResize bool

	// ExtraRows is the number of rows added below the data when ClearAndResize is set.
	ExtraRows int

	// StartColumn and StartRow anchor the header cell. Both are 1-based and default to 1.
	StartColumn int
	StartRow    int

	// ResizeToExactWidth resizes the worksheet to the number of columns.
	ResizeToExactWidth bool
}

// DefaultImportOptions anchors at A1 and keeps one extra row on resize.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ExtraRows: 1, StartColumn: 1, StartRow: 1}
}

// ImportDataset writes a header row and the rows of ds into worksheet.
// Rows whose cells are all null are skipped. The worksheet is created when
// missing and grown when the data does not fit.
func (c *Client) ImportDataset(ctx context.Context, ds *sqlloader.Dataset, worksheet string, opts ImportOptions) error {
	l := log.Ctx(ctx)

	if opts.StartColumn < 1 {
		opts.StartColumn = 1
	}
	if opts.StartRow < 1 {
		opts.StartRow = 1
	}

	sheet, err := c.enterWorksheet(ctx, worksheet)
	if err != nil {
		return err
	}

	data := ds.DropEmptyRows()

	var rows, cols int64
	if gp := sheet.GridProperties; gp != nil {
		rows, cols = gp.RowCount, gp.ColumnCount
	}
	origRows, origCols := rows, cols

	if opts.ClearAndResize {
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoteTitle(worksheet), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return xerrors.Errorf("failed to clear worksheet %q: %w", worksheet, err)
		}
		rows = int64(ds.NumRows() + opts.ExtraRows)
		origRows = -1
	}
	if opts.ResizeToExactWidth {
		cols = int64(ds.NumColumns())
		origCols = -1
	}

	if need := int64(opts.StartRow + data.NumRows()); need > rows {
		rows = need
	}
	if need := int64(opts.StartColumn - 1 + data.NumColumns()); need > cols {
		cols = need
	}

	if rows != origRows || cols != origCols {
		if err := c.resize(ctx, sheet.SheetId, rows, cols); err != nil {
			return xerrors.Errorf("failed to resize worksheet %q: %w", worksheet, err)
		}
	}

	values := make([][]any, 0, data.NumRows()+1)
	header := make([]any, data.NumColumns())
	for i, n := range data.ColumnNames() {
		header[i] = n
	}
	values = append(values, header)
	for i := 0; i < data.NumRows(); i++ {
		row := data.Row(i)
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		values = append(values, cells)
	}

	rng := quoteTitle(worksheet) + "!" + cellRef(opts.StartColumn, opts.StartRow)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return xerrors.Errorf("failed to write %s: %w", rng, err)
	}

	l.Info().Str("worksheet", worksheet).Int("rows", data.NumRows()).Msg("dataset imported")
	return nil
}

func (c *Client) resize(ctx context.Context, sheetID, rows, cols int64) error {
	_, err := c.batchUpdate(ctx, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         sheetID,
				ForceSendFields: []string{"SheetId"},
				GridProperties: &sheets.GridProperties{
					RowCount:    rows,
					ColumnCount: cols,
				},
			},
			Fields: "gridProperties.rowCount,gridProperties.columnCount",
		},
	})
	return err
}

func cellValue(v sqlloader.Value) any {
	switch v.Kind() {
	case sqlloader.KindNull:
		return ""
	case sqlloader.KindBool:
		return v.AsBool()
	case sqlloader.KindInt:
		return v.AsInt()
	case sqlloader.KindFloat, sqlloader.KindDecimal:
		f := v.AsFloat()
		if math.IsInf(f, 0) {
			return v.Text()
		}
		return f
	default:
		return v.AsString()
	}
}

// FetchDataset reads a worksheet whose first row is a header.
// Empty cells become nulls and numbers are typed.
func (c *Client) FetchDataset(ctx context.Context, worksheet string) (*sqlloader.Dataset, error) {
	if _, err := c.enterWorksheet(ctx, worksheet); err != nil {
		return nil, err
	}

	vr, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTitle(worksheet)).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, xerrors.Errorf("failed to read worksheet %q: %w", worksheet, err)
	}

	return datasetFromValues(vr.Values)
}

func datasetFromValues(values [][]any) (*sqlloader.Dataset, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, ErrEmptyWorksheet
	}

	names := make([]string, len(values[0]))
	for i, h := range values[0] {
		names[i] = sqlloader.ValueOf(h).Text()
	}

	rows := make([][]any, 0, len(values)-1)
	for _, r := range values[1:] {
		row := make([]any, len(names))
		for j := range names {
			if j < len(r) {
				row[j] = sheetCell(r[j])
			}
		}
		rows = append(rows, row)
	}

	return sqlloader.DatasetFromRows(names, rows)
}

func sheetCell(v any) any {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	default:
		return v
	}
}
