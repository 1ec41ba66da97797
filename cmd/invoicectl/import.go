package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	invoicedex "github.com/kailas-cloud/invoicedex/pkg/sdk"
)

func importCmd() *cobra.Command {
	var (
		supplierID     string
		organizationID string
		useSupplier    bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import a CSV of invoices, one invoice per row",
		Long: `Import a CSV file of invoices for one supplier and organization.

Rows are validated together: a single malformed row rejects the file and
nothing is stored. Accepted rows are indexed asynchronously; rows whose
index write keeps failing are listed under "deadletters".

Examples:
  invoicectl import march.csv --supplier sup-1 --organization org-1
  invoicectl import export.csv --supplier sup-1 --organization org-1 --supplier-mapping`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			var body io.Reader = f
			if !quiet {
				bar := progressbar.DefaultBytes(info.Size(), "reading "+filepath.Base(path))
				body = io.TeeReader(f, bar)
			}

			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			res, err := client.Import(ctx, invoicedex.ImportRequest{
				SupplierID:         supplierID,
				OrganizationID:     organizationID,
				Filename:           filepath.Base(path),
				Body:               body,
				UseSupplierMapping: useSupplier,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%d invoices uploaded successfully (%d indexed)\n", res.Count, res.Indexed)
			for _, id := range res.DeadLettered {
				fmt.Fprintf(out, "  dead-lettered: %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&supplierID, "supplier", "s", "", "issuing supplier id")
	cmd.Flags().StringVarP(&organizationID, "organization", "o", "", "receiving organization id")
	cmd.Flags().BoolVar(&useSupplier, "supplier-mapping", false, "apply the supplier's mapping spec instead of the built-in columns")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("supplier")
	_ = cmd.MarkFlagRequired("organization")

	return cmd
}
