package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlscope-backend/internal/config"
	"sqlscope-backend/internal/logging"
	"sqlscope-backend/internal/target"
)

func main() {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Introspect and query user-registered SQL databases",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.Log), nil
}

// newConnector builds the target connector from connector config.
func newConnector(cfg config.ConnectorConfig, log *zap.Logger, flavors []string) (*target.Connector, error) {
	enabled := make([]target.Flavor, 0, len(flavors))
	for _, name := range flavors {
		f, ok := target.ParseFlavor(name)
		if !ok {
			return nil, fmt.Errorf("connector.flavors: unknown flavor %q", name)
		}
		enabled = append(enabled, f)
	}
	return target.NewConnector(
		target.WithFlavors(enabled...),
		target.WithTimeouts(cfg.ConnectTimeout(), cfg.StatementTimeout()),
		target.WithLogger(log.Named("connector")),
	), nil
}
