package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func reindexCmd() *cobra.Command {
	var (
		pageSize int
		rebuild  bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from stored invoices",
		Long: `Re-project every stored invoice into the search index.

Documents are keyed by invoice id, so running this twice is harmless.
Invoices whose stored canonical form no longer projects are reported as
skipped. With --rebuild the index definition is recreated first, which is
needed after the index schema changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			if rebuild {
				if err := client.RebuildIndex(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "search index definition recreated")
			}

			var bar *progressbar.ProgressBar
			progress := func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("reindexing"),
						progressbar.OptionShowCount(),
						progressbar.OptionSetWriter(cmd.ErrOrStderr()),
						progressbar.OptionSetTheme(progressbar.Theme{
							Saucer:        "=",
							SaucerHead:    ">",
							SaucerPadding: " ",
							BarStart:      "[",
							BarEnd:        "]",
						}),
					)
				}
				_ = bar.Set(done)
			}

			res, err := client.Reindex(ctx, pageSize, progress)
			if err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%d invoices, %d indexed\n", res.Total, res.Indexed)
			for _, id := range res.Skipped {
				fmt.Fprintf(out, "  skipped: %s\n", id)
			}
			for _, id := range res.DeadLettered {
				fmt.Fprintf(out, "  dead-lettered: %s\n", id)
			}
			if n, err := client.IndexedCount(ctx); err == nil {
				fmt.Fprintf(out, "index holds %d documents\n", n)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 500, "invoices read per page")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recreate the index definition before reindexing")
	return cmd
}
