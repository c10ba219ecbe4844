package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/query"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var scopes = []string{
	bigquery.Scope,
	"https://www.googleapis.com/auth/cloud-platform",
}

type Row = map[string]bigquery.Value

type Selector interface {
	Select(ctx context.Context, query *query.Query) ([]Row, error)
}

type Querier interface {
	Selector
	RunQueryWithoutResult(ctx context.Context, query *query.Query) error
}

type Client struct {
	client *bigquery.Client
	config *Config
}

func ClientOptions(c *Config) []option.ClientOption {
	options := []option.ClientOption{
		option.WithScopes(scopes...),
	}

	switch {
	case c.CredentialsJSON != "":
		options = append(options, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	case c.CredentialsFilePath != "":
		options = append(options, option.WithCredentialsFile(c.CredentialsFilePath))
	case c.Credentials != nil:
		options = append(options, option.WithCredentials(c.Credentials))
	}

	return options
}

func NewDB(ctx context.Context, c *Config) (*Client, error) {
	client, err := bigquery.NewClient(ctx, c.ProjectID, ClientOptions(c)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bigquery client")
	}

	if c.Location != "" {
		client.Location = c.Location
	}

	return &Client{client: client, config: c}, nil
}

func (d *Client) Close() error {
	return d.client.Close()
}

func (d *Client) Dataset() string {
	if d.config == nil {
		return ""
	}
	return d.config.Dataset
}

func (d *Client) newQuery(q *query.Query) *bigquery.Query {
	bq := d.client.Query(q.String())
	for _, name := range q.ParameterNames() {
		bq.Parameters = append(bq.Parameters, bigquery.QueryParameter{Name: name, Value: q.Parameters[name]})
	}

	return bq
}

// RunQueryWithoutResult is used for DML such as the DELETE statements issued before reloading a day.
func (d *Client) RunQueryWithoutResult(ctx context.Context, q *query.Query) error {
	_, err := d.newQuery(q).Read(ctx)
	if err != nil {
		return formatError(err)
	}

	return nil
}

// Select returns every row keyed by column name.
func (d *Client) Select(ctx context.Context, q *query.Query) ([]Row, error) {
	rows, err := d.newQuery(q).Read(ctx)
	if err != nil {
		return nil, formatError(err)
	}

	result := make([]Row, 0)
	for {
		var values map[string]bigquery.Value
		err := rows.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read row")
		}

		result = append(result, values)
	}

	return result, nil
}

func (d *Client) Ping(ctx context.Context) error {
	err := d.RunQueryWithoutResult(ctx, &query.Query{Query: "SELECT 1"})
	if err != nil {
		return errors.Wrap(err, "failed to run test query on BigQuery connection")
	}

	return nil
}

func formatError(err error) error {
	var googleError *googleapi.Error
	if !errors.As(err, &googleError) {
		return err
	}

	if googleError.Code == 404 || googleError.Code == 400 {
		return fmt.Errorf("%s", googleError.Message)
	}

	return googleError
}
