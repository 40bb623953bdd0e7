package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/export"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Employee expense claim pipeline",
	Long:  "Extracts line items from a claim document and classifies each one against the category table.",
}

// -- claim process --

var claimProcessCmd = &cobra.Command{
	Use:   "process <file|gs://bucket/object>...",
	Short: "Extract and classify claim documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		outDir, _ := cmd.Flags().GetString("out-dir")

		if !validClaimFormat(format) {
			return eris.Errorf("claim process: unknown format %q (table, json, csv, xlsx)", format)
		}

		services, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck

		processor, err := services.ClaimProcessor()
		if err != nil {
			return err
		}

		for _, ref := range args {
			doc, sourceURI, err := app.LoadDocument(ctx, services.Storage, ref)
			if err != nil {
				return err
			}
			res, err := processor.Process(ctx, claims.Input{Document: doc, SourceURI: sourceURI})
			if err != nil {
				var parseErr *claims.ParseError
				if errors.As(err, &parseErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Model reply:\n%s\n", parseErr.Raw)
				}
				return eris.Wrapf(err, "claim process %s", ref)
			}
			if err := writeClaimResult(cmd.OutOrStdout(), res, format, outDir, doc.Name, time.Now()); err != nil {
				return err
			}
		}
		return nil
	},
}

func validClaimFormat(format string) bool {
	switch format {
	case "table", "json", "csv", "xlsx":
		return true
	}
	return false
}

// writeClaimResult prints table and json to out; csv and xlsx go to a file in
// outDir whose path is printed.
func writeClaimResult(out io.Writer, res *claims.Result, format, outDir, name string, now time.Time) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "csv", "xlsx":
		path := filepath.Join(outDir, export.BuildFilename(name, format, now))
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "writeClaimResult: create %s", path)
		}
		if format == "csv" {
			err = export.WriteCSV(f, res.Items)
		} else {
			err = export.WriteXLSX(f, res)
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return eris.Wrapf(err, "writeClaimResult: write %s", path)
		}
		fmt.Fprintf(out, "Wrote %d of %d items (%d failed) to %s\n", len(res.Items), res.Attempted(), len(res.Failures), path)
		return nil
	default:
		return export.WriteTable(out, res)
	}
}

// -- claim categories --

var claimCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the claim category table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := claims.LoadDefaultCategories()
		if err != nil {
			return err
		}
		formatCategories(cmd.OutOrStdout(), table)
		return nil
	},
}

func formatCategories(w io.Writer, table *claims.CategoryTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCATEGORY\tSUB CATEGORY\tCOA")
	for _, rec := range table.Records() {
		key := string(rec.Key)
		if rec.Key == table.Default().Key {
			key += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, rec.CategoryClaim, rec.SubCategory, rec.COA)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	claimProcessCmd.Flags().StringP("format", "f", "table", "output format: table, json, csv or xlsx")
	claimProcessCmd.Flags().String("out-dir", ".", "directory for csv and xlsx exports")

	claimCmd.AddCommand(claimProcessCmd, claimCategoriesCmd)
	rootCmd.AddCommand(claimCmd)
}
