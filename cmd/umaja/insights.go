package main

import (
	"encoding/json"
	"fmt"

	"github.com/BerylCAtieno/umaja/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInsightsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Summarize recorded beta analytics",
		Long: `Read every analytics category file under the data directory and print
the aggregated insights as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			insights, err := app.NewTracker(cfg, nil, zap.NewNop()).Insights(cmd.Context())
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(insights, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
