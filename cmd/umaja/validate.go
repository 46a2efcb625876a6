package main

import (
	"fmt"

	"github.com/BerylCAtieno/umaja/internal/app"
	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the template tables",
		Long: `Load the template tables, check that every archetype, language and
subject combination is present, and render each one once.

The built-in tables are checked unless templates.dir (TEMPLATES_DIR) points
at a directory of YAML files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, _, err := app.LoadStore(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Templates OK: %d languages, %d topics, %d cities, %d combinations\n",
				len(store.Languages()), len(store.Topics()), len(store.Cities()), len(store.Matrix()))
			return nil
		},
	}
}
