package bigquery

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sqlloader"
)

// WriteDisposition controls what a load does with existing table data.
// The empty value keeps BigQuery's default, which appends.
type WriteDisposition = bigquery.TableWriteDisposition

// Write dispositions.
const (
	WriteAppend   = bigquery.WriteAppend
	WriteTruncate = bigquery.WriteTruncate
	WriteEmpty    = bigquery.WriteEmpty
)

// LoadDataset loads ds into table, given as "dataset.table" or "project.dataset.table".
// The schema is auto-detected.
func (c *Client) LoadDataset(ctx context.Context, ds *sqlloader.Dataset, table string, wd WriteDisposition) error {
	l := log.Ctx(ctx)

	t, err := c.table(table)
	if err != nil {
		return err
	}

	buf, err := encodeCSV(ds)
	if err != nil {
		l.Error().Err(err).Msg("failed to write csv")
		return err
	}

	rs := bigquery.NewReaderSource(buf)
	rs.SourceFormat = bigquery.CSV
	rs.SkipLeadingRows = 1
	rs.AutoDetect = true

	loader := t.LoaderFrom(rs)
	if wd != "" {
		loader.WriteDisposition = wd
	}

	job, err := loader.Run(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to run bigquery load job")
		return xerrors.Errorf("failed to run load job for %s: %w", table, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to wait job")
		return xerrors.Errorf("failed to wait load job %s: %w", job.ID(), err)
	}

	if err := status.Err(); err != nil {
		l.Error().Interface("errors", status.Errors).Msg("failed to load csv")
		return xerrors.Errorf("load job %s failed: %w", job.ID(), err)
	}

	l.Info().Str("table", table).Int("rows", ds.NumRows()).Msg("dataset loaded")
	return nil
}

func (c *Client) table(name string) (*bigquery.Table, error) {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 2:
		return c.bq.Dataset(parts[0]).Table(parts[1]), nil
	case 3:
		return c.bq.DatasetInProject(parts[0], parts[1]).Table(parts[2]), nil
	default:
		return nil, xerrors.Errorf("table must be dataset.table or project.dataset.table: %q", name)
	}
}

// encodeCSV writes a header row followed by every row of ds. Nulls become empty fields.
func encodeCSV(ds *sqlloader.Dataset) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(ds.ColumnNames()); err != nil {
		return nil, xerrors.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, ds.NumColumns())
	for i := 0; i < ds.NumRows(); i++ {
		for j, v := range ds.Row(i) {
			record[j] = v.Text()
		}
		if err := w.Write(record); err != nil {
			return nil, xerrors.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, xerrors.Errorf("failed to flush csv: %w", err)
	}

	return buf, nil
}
