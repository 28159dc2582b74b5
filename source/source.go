// Package source reads tabular files from Cloud Storage into datasets.
package source

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sqlloader"
)

// DefaultConcurrency is the number of objects ReadAll reads at once.
const DefaultConcurrency = 4

// Source defines how to read objects into datasets.
type Source struct {
	Extractor Extractor

	// Encoding decodes objects which are not UTF-8 such as Shift_JIS.
	Encoding encoding.Encoding

	// Parser defaults to CSVParser.
	Parser Parser

	// SkipLeadingRows is the number of records before the header.
	SkipLeadingRows int

	Concurrency int
}

// Read reads o. The first record after SkipLeadingRows is the header.
// Each cell is typed with ParseValue.
func (s *Source) Read(ctx context.Context, o Object) (*sqlloader.Dataset, error) {
	l := log.Ctx(ctx).With().Str("object", o.FullPath()).Logger()

	if s.SkipLeadingRows < 0 {
		return nil, xerrors.Errorf("SkipLeadingRows must not be negative: %d", s.SkipLeadingRows)
	}

	rc, err := s.Extractor.Extract(ctx, o)
	if err != nil {
		return nil, xerrors.Errorf("failed to extract: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.Encoding != nil {
		r = transform.NewReader(rc, s.Encoding.NewDecoder())
	}

	parser := s.Parser
	if parser == nil {
		parser = CSVParser()
	}

	records, err := parser(ctx, r)
	if err != nil {
		l.Error().Err(err).Msg("failed to parse object")
		return nil, xerrors.Errorf("failed to parse %s: %w", o.FullPath(), err)
	}

	if len(records) <= s.SkipLeadingRows {
		return nil, xerrors.Errorf("%s has no header after %d leading rows", o.FullPath(), s.SkipLeadingRows)
	}
	records = records[s.SkipLeadingRows:]

	header := records[0]
	rows := make([][]any, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) > len(header) {
			return nil, xerrors.Errorf("row %d (line %d) of %s has %d fields, header has %d",
				i, i+s.SkipLeadingRows+2, o.FullPath(), len(rec), len(header))
		}

		row := make([]any, len(header))
		for j, cell := range rec {
			row[j] = ParseValue(cell)
		}
		rows = append(rows, row)
	}

	ds, err := sqlloader.DatasetFromRows(header, rows)
	if err != nil {
		return nil, xerrors.Errorf("failed to build dataset from %s: %w", o.FullPath(), err)
	}

	l.Debug().Int("rows", ds.NumRows()).Msg("object read")

	return ds, nil
}

// ReadAll reads objs concurrently and appends their rows in the order of objs.
// Every object must have the same header.
func (s *Source) ReadAll(ctx context.Context, objs ...Object) (*sqlloader.Dataset, error) {
	if len(objs) == 0 {
		return nil, xerrors.New("no objects to read")
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]*sqlloader.Dataset, len(objs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, o := range objs {
		eg.Go(func() error {
			ds, err := s.Read(ctx, o)
			if err != nil {
				return err
			}
			results[i] = ds
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ds := results[0]
	for i, r := range results[1:] {
		var err error
		if ds, err = ds.Append(r); err != nil {
			return nil, xerrors.Errorf("failed to append %s: %w", objs[i+1].FullPath(), err)
		}
	}

	return ds, nil
}

// ParseValue types a text cell. Blank text is null and true or false in any
// case is a boolean. Finite numbers are integers where possible.
// Other text stays a string.
func ParseValue(s string) sqlloader.Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return sqlloader.Null()
	}

	switch strings.ToLower(t) {
	case "true":
		return sqlloader.Bool(true)
	case "false":
		return sqlloader.Bool(false)
	}

	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return sqlloader.Int(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return sqlloader.Float(f)
	}

	return sqlloader.String(s)
}
