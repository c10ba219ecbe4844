package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
)

// LoadOptions describe the pipe separated CSV files produced by the history loader.
type LoadOptions struct {
	Delimiter           string
	SkipLeadingRows     int64
	AllowQuotedNewlines bool
	MaxBadRecords       int64
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter:       "|",
		SkipLeadingRows: 1,
	}
}

// LoadCSV appends the CSV object at uri into dataset.table and waits for the job to finish.
func (d *Client) LoadCSV(ctx context.Context, uri, table string, opts LoadOptions) error {
	ref := bigquery.NewGCSReference(uri)
	ref.SourceFormat = bigquery.CSV
	ref.AutoDetect = true
	ref.FieldDelimiter = opts.Delimiter
	ref.SkipLeadingRows = opts.SkipLeadingRows
	ref.AllowQuotedNewlines = opts.AllowQuotedNewlines
	ref.MaxBadRecords = opts.MaxBadRecords

	loader := d.client.Dataset(d.Dataset()).Table(table).LoaderFrom(ref)
	loader.WriteDisposition = bigquery.WriteAppend

	job, err := loader.Run(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to start load job for %s", uri)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to wait for load job %s", job.ID())
	}
	if err := status.Err(); err != nil {
		return errors.Wrapf(err, "load job %s failed", job.ID())
	}

	return nil
}
