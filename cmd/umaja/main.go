// Package main implements the umaja operator CLI: render content offline,
// check the template tables, and read the analytics and sales files.
package main

import (
	"os"

	"github.com/BerylCAtieno/umaja/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath, o.envFile)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "umaja",
		Short: "Operator CLI for the UMAJA smile service",
		Long: `umaja works directly on the template tables and the data directory
used by the server. It needs no running server.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file")

	cmd.AddCommand(newRenderCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newInsightsCmd(opts))
	cmd.AddCommand(newSalesCmd(opts))
	return cmd
}
