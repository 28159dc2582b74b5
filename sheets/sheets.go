// Package sheets reads and writes datasets in Google Sheets spreadsheets.
//
// A spreadsheet is a workbook; a worksheet is one tab inside it. The service
// account of the credentials secret needs edit access to the spreadsheet.
package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"go.nownabe.dev/sqlloader/secrets"
)

// Default size of worksheets created on demand.
const (
	DefaultWorksheetRows    = 100
	DefaultWorksheetColumns = 24
)

// ErrEmptyWorksheet is returned when reading a worksheet without a header row.
var ErrEmptyWorksheet = errors.New("worksheet has no header row")

// Scopes are the OAuth scopes requested for the service account.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// Client manipulates one spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New resolves the service account secret and opens the spreadsheet.
func New(ctx context.Context, store secrets.Store, secretName, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	sa, err := store.Get(ctx, secretName)
	if err != nil {
		return nil, err
	}

	saJSON, err := sa.JSON()
	if err != nil {
		return nil, &secrets.ResolutionError{Name: secretName, Err: err}
	}

	opts = append([]option.ClientOption{option.WithCredentialsJSON(saJSON), option.WithScopes(Scopes...)}, opts...)
	return NewWithOptions(ctx, spreadsheetID, opts...)
}

// NewWithOptions opens the spreadsheet with explicit client options.
func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create sheets service: %w", err)
	}

	c := &Client{svc: svc, spreadsheetID: spreadsheetID}
	if _, err := c.spreadsheet(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) spreadsheet(ctx context.Context) (*sheets.Spreadsheet, error) {
	s, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, xerrors.Errorf("failed to open spreadsheet %s: %w", c.spreadsheetID, err)
	}
	return s, nil
}

// Worksheets returns the properties of all worksheets in order.
func (c *Client) Worksheets(ctx context.Context) ([]*sheets.SheetProperties, error) {
	s, err := c.spreadsheet(ctx)
	if err != nil {
		return nil, err
	}

	props := make([]*sheets.SheetProperties, 0, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			props = append(props, sh.Properties)
		}
	}
	return props, nil
}

// ListSheets returns the titles of all worksheets in order.
func (c *Client) ListSheets(ctx context.Context) ([]string, error) {
	props, err := c.Worksheets(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(props))
	for i, p := range props {
		titles[i] = p.Title
	}
	return titles, nil
}

// enterWorksheet returns the named worksheet, creating it when missing.
func (c *Client) enterWorksheet(ctx context.Context, title string) (*sheets.SheetProperties, error) {
	props, err := c.Worksheets(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if p.Title == title {
			return p, nil
		}
	}

	log.Ctx(ctx).Info().Str("worksheet", title).Msg("creating worksheet")

	res, err := c.batchUpdate(ctx, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: title,
				GridProperties: &sheets.GridProperties{
					RowCount:    DefaultWorksheetRows,
					ColumnCount: DefaultWorksheetColumns,
				},
			},
		},
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to add worksheet %q: %w", title, err)
	}

	if len(res.Replies) == 0 || res.Replies[0].AddSheet == nil || res.Replies[0].AddSheet.Properties == nil {
		return nil, xerrors.Errorf("no properties returned for new worksheet %q", title)
	}
	return res.Replies[0].AddSheet.Properties, nil
}

// DeleteSheet deletes a worksheet. A missing worksheet is created and then deleted.
func (c *Client) DeleteSheet(ctx context.Context, title string) error {
	p, err := c.enterWorksheet(ctx, title)
	if err != nil {
		return err
	}

	if _, err := c.batchUpdate(ctx, &sheets.Request{
		DeleteSheet: &sheets.DeleteSheetRequest{SheetId: p.SheetId, ForceSendFields: []string{"SheetId"}},
	}); err != nil {
		return xerrors.Errorf("failed to delete worksheet %q: %w", title, err)
	}

	return nil
}

// WriteStringToCell writes s into cell (A1 notation, defaults to A1).
func (c *Client) WriteStringToCell(ctx context.Context, s, worksheet, cell string) error {
	if cell == "" {
		cell = "A1"
	}

	if _, err := c.enterWorksheet(ctx, worksheet); err != nil {
		return err
	}

	rng := quoteTitle(worksheet) + "!" + cell
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]any{{s}},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return xerrors.Errorf("failed to write %s: %w", rng, err)
	}

	return nil
}

func (c *Client) batchUpdate(ctx context.Context, reqs ...*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	return c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
}

// quoteTitle renders a worksheet title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnLetters converts a 1-based column number to letters: 1 is A, 27 is AA.
func columnLetters(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func cellRef(col, row int) string {
	return columnLetters(col) + strconv.Itoa(row)
}
