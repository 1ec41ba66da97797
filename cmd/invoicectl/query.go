package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	invoicedex "github.com/kailas-cloud/invoicedex/pkg/sdk"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Compile and run structured invoice queries",
	}
	cmd.AddCommand(queryPreviewCmd())
	cmd.AddCommand(queryExecuteCmd())
	return cmd
}

func bindSearchFlags(cmd *cobra.Command, p *invoicedex.SearchParams) {
	f := cmd.Flags()
	f.StringVar(&p.SupplierName, "supplier-name", "", "seller company name (full text)")
	f.StringVar(&p.StartDate, "start-date", "", "earliest invoice date, YYYY-MM-DD")
	f.StringVar(&p.EndDate, "end-date", "", "latest invoice date, YYYY-MM-DD")
	f.StringVar(&p.InvoiceNumber, "invoice-number", "", "exact invoice number")
	f.StringVar(&p.Currency, "currency", "", "exact currency code")
	f.StringVar(&p.TotalAmountMin, "min-total", "", "minimum total amount")
	f.StringVar(&p.TotalAmountMax, "max-total", "", "maximum total amount")
	f.StringVar(&p.ItemDescription, "item", "", "line item description (full text)")
	f.IntVarP(&p.Size, "size", "n", 0, "maximum hits (0 uses the configured default)")
}

func queryPreviewCmd() *cobra.Command {
	var p invoicedex.SearchParams

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the compiled query for the given parameters without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			compiled, err := client.Preview(p)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, compiled, "", "  "); err != nil {
				return fmt.Errorf("format query: %w", err)
			}
			pretty.WriteByte('\n')
			_, err = pretty.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	bindSearchFlags(cmd, &p)
	return cmd
}

func queryExecuteCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "execute [query.json|-]",
		Short: "Run a compiled query, as printed by preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			client, err := openClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient(client)

			page, err := client.Execute(ctx, compiled)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tSELLER\tTOTAL\tCURRENCY")
			for _, h := range page.Hits {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
					h.ID, h.InvoiceNumber, h.InvoiceDate, h.Seller, h.TotalAmount, h.Currency)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d hits\n", len(page.Hits), page.Total)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output hits as JSON")
	return cmd
}

// readInput reads a file, or stdin when name is "-".
func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
