package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/BerylCAtieno/umaja/internal/app"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/spf13/cobra"
)

func newSalesCmd(root *rootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List sales from the ledger",
		Long: `List the latest state of every sale in the sales ledger.

Examples:
  # All sales
  umaja sales

  # Only sales still waiting for payment
  umaja sales --status pending`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			list, err := app.NewLedger(cfg, nil).List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tARCHETYPE\tLANGUAGE\tTOPIC\tAMOUNT\tUPDATED")
			n := 0
			for _, s := range list {
				if status != "" && string(s.Status) != status {
					continue
				}
				n++
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s %s\t%s\n",
					s.ID, s.Status, s.Archetype, s.Language, s.Topic, s.Amount(), s.Currency,
					s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d sale(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show sales in this status: "+
		string(models.SalePending)+", "+string(models.SalePaid)+", "+string(models.SaleDelivered)+" or "+string(models.SaleFailed))
	return cmd
}
