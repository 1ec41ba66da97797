package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func deadLettersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadletters",
		Aliases: []string{"dl"},
		Short:   "Inspect invoices whose index write failed permanently",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List dead-lettered invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			entries, err := client.DeadLetters(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INVOICE\tSUPPLIER\tORGANIZATION\tATTEMPTS\tFAILED AT\tERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					e.InvoiceID, e.Issuer, e.Recipient, e.Attempts, e.FailedAt.Format(time.RFC3339), e.LastError)
			}
			return tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove [invoice-id]",
		Short: "Forget a dead-letter record, usually after a reindex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			if err := client.RemoveDeadLetter(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	})
	return cmd
}
