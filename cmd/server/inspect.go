package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"sqlscope-backend/internal/introspect"
	"sqlscope-backend/internal/target"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <endpoint> [table]",
		Short: "Print the schema of a database, or the fields of one table",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			// Local use: every flavor is allowed, including sqlite files.
			connector, err := newConnector(cfg.Connector, log, []string{
				string(target.FlavorPostgres), string(target.FlavorMySQL),
				string(target.FlavorSQLite), string(target.FlavorMSSQL),
			})
			if err != nil {
				return err
			}
			in := introspect.New(connector, cfg.Connector.DescribeConcurrency, cfg.Connector.PreviewLimit, log)

			var out any
			if len(args) == 2 {
				out, err = in.ListFields(cmd.Context(), args[0], args[1])
			} else {
				out, err = in.Describe(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
