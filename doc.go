/*
Package sqlloader is a small set of data integration helpers built around
a full-refresh table loader.

# Loading a dataset

LoadReplace drops the destination table, infers a schema from the dataset,
creates the table and inserts every row with a single statement. The
whole sequence runs in one transaction and the connection is always closed.

	package main

	import (
		"context"
		"os"

		"go.nownabe.dev/sqlloader"
		"go.nownabe.dev/sqlloader/redshift"
		"go.nownabe.dev/sqlloader/secrets"
	)

	func main() {
		ctx := context.Background()

		store, err := secrets.NewAWSStore(ctx)
		if err != nil {
			panic(err)
		}

		rs, err := redshift.New(ctx, store, os.Getenv("REDSHIFT_SECRET"), secrets.CredentialKeys{})
		if err != nil {
			panic(err)
		}

		loader := sqlloader.MustNew(rs.Connector(),
			sqlloader.WithLogLevel("debug"),
			sqlloader.WithNotifier(&sqlloader.SlackNotifier{
				Token:   os.Getenv("SLACK_TOKEN"),
				Channel: os.Getenv("SLACK_CHANNEL"),
			}),
		)

		ds := sqlloader.MustNewDataset(
			sqlloader.Column{Name: "id", Values: []sqlloader.Value{sqlloader.Int(1), sqlloader.Int(2)}},
			sqlloader.Column{Name: "name", Values: []sqlloader.Value{sqlloader.String("Ann"), sqlloader.String("O'Brien")}},
		)

		if err := loader.LoadReplace(ctx, ds, "public.people"); err != nil {
			panic(err)
		}
	}

# Column types

Each column gets the narrowest of BOOLEAN, INTEGER, FLOAT and VARCHAR(n)
that fits its non-null values. Columns without any non-null value, or with
mixed kinds, become VARCHAR(255).
*/
package sqlloader
